package chain

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// GradeBookABI contains the simplified ABI for the GradeBook contract
const GradeBookABI = `[
	{
		"inputs": [
			{"internalType": "bytes32", "name": "attemptId", "type": "bytes32"},
			{"internalType": "bytes32", "name": "itemId", "type": "bytes32"},
			{"internalType": "address", "name": "learner", "type": "address"},
			{"internalType": "uint16", "name": "scoreBps", "type": "uint16"},
			{"internalType": "uint8", "name": "rating", "type": "uint8"}
		],
		"name": "recordAttempt",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

var (
	gradeBookABI     abi.ABI
	gradeBookABIOnce sync.Once
	gradeBookABIErr  error
)

func loadGradeBookABI() (abi.ABI, error) {
	gradeBookABIOnce.Do(func() {
		gradeBookABI, gradeBookABIErr = abi.JSON(strings.NewReader(GradeBookABI))
	})
	return gradeBookABI, gradeBookABIErr
}

// PackRecordAttempt builds the calldata for GradeBook.recordAttempt.
// scoreBps is the score in basis points (0-10000), rating the bucket 0-3.
func PackRecordAttempt(attemptID, itemID [32]byte, learner common.Address, scoreBps uint16, rating uint8) ([]byte, error) {
	parsed, err := loadGradeBookABI()
	if err != nil {
		return nil, fmt.Errorf("failed to load GradeBook ABI: %w", err)
	}

	data, err := parsed.Pack("recordAttempt", attemptID, itemID, learner, scoreBps, rating)
	if err != nil {
		return nil, fmt.Errorf("failed to pack recordAttempt call: %w", err)
	}
	return data, nil
}
