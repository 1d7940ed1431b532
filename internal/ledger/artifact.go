package ledger

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Artifact is a compiled token contract: its ABI plus deployment bytecode.
// The constructor takes (name string, symbol string, initialSupply uint256).
type Artifact struct {
	ABI      abi.ABI
	Bytecode []byte
}

type artifactFile struct {
	ABI      json.RawMessage `json:"abi"`
	Bytecode string          `json:"bytecode"`
}

// LoadArtifact reads a solc-style artifact JSON from disk.
func LoadArtifact(path string) (*Artifact, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return ParseArtifact(raw)
}

// ParseArtifact decodes an artifact from its JSON encoding.
func ParseArtifact(raw []byte) (*Artifact, error) {
	var file artifactFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("unmarshal artifact: %w", err)
	}
	if len(file.ABI) == 0 || file.Bytecode == "" {
		return nil, fmt.Errorf("artifact missing abi or bytecode")
	}

	parsed, err := abi.JSON(strings.NewReader(string(file.ABI)))
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}

	code, err := hex.DecodeString(strings.TrimPrefix(file.Bytecode, "0x"))
	if err != nil {
		return nil, fmt.Errorf("decode bytecode: %w", err)
	}

	return &Artifact{ABI: parsed, Bytecode: code}, nil
}
