package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Overrides maps a contract bytecode hash to the replacement bytecode
// an Engine must use instead, loaded from a directory of 0xHASH.json
// files. The replacement applies globally: every execution that would
// resolve bytecode with a matching hash sees the override.
type Overrides map[common.Hash][]byte

// overrideFile is the on-disk shape of one 0xHASH.json entry.
type overrideFile struct {
	Bytecode hexutil.Bytes `json:"bytecode"`
}

// LoadOverrides reads every 0xHASH.json file in dir. An empty dir name
// yields an empty (never nil-dereferenced) set. Files that don't match
// the 0xHASH.json naming convention are ignored; files that do match
// but fail to parse, or whose bytecode is not a positive multiple of
// 32 bytes, are an error, since a silently dropped override would make
// execution diverge from what the operator configured.
func LoadOverrides(dir string) (Overrides, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("engine: read override dir %s: %w", dir, err)
	}
	overrides := make(Overrides)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, "0x") || !strings.HasSuffix(name, ".json") {
			continue
		}
		hashHex := strings.TrimSuffix(name, ".json")
		if len(hashHex) != 2+2*common.HashLength {
			continue
		}
		hash := common.HexToHash(hashHex)
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("engine: read override %s: %w", name, err)
		}
		var f overrideFile
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("engine: parse override %s: %w", name, err)
		}
		if len(f.Bytecode) == 0 || len(f.Bytecode)%32 != 0 {
			return nil, fmt.Errorf("engine: override %s: bytecode length must be a positive multiple of 32", name)
		}
		overrides[hash] = f.Bytecode
	}
	return overrides, nil
}

// Replace returns the override for the bytecode whose hash is h, or
// code unchanged when no override exists.
func (o Overrides) Replace(h common.Hash, code []byte) []byte {
	if o == nil {
		return code
	}
	if repl, ok := o[h]; ok {
		return repl
	}
	return code
}
