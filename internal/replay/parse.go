package replay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gagliardetto/solana-go"

	"soondex/internal/model"
)

// ParsePublicKey decodes a base58 account key; field names the input in errors.
func ParsePublicKey(field, input string) (solana.PublicKey, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return solana.PublicKey{}, fmt.Errorf("%s is required", field)
	}
	key, err := solana.PublicKeyFromBase58(input)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid %s %q: %w", field, input, err)
	}
	return key, nil
}

// ParsePublicKeys decodes a list of keys, skipping blank entries.
func ParsePublicKeys(field string, inputs []string) ([]solana.PublicKey, error) {
	keys := make([]solana.PublicKey, 0, len(inputs))
	for _, input := range inputs {
		if strings.TrimSpace(input) == "" {
			continue
		}
		key, err := ParsePublicKey(field, input)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// ReadInstructions decodes a JSONL instruction script. Blank lines keep
// their line number but are returned as empty instructions.
func ReadInstructions(r io.Reader) ([]model.Instruction, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var out []model.Instruction
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		var ins model.Instruction
		if line != "" {
			dec := json.NewDecoder(strings.NewReader(line))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&ins); err != nil {
				return nil, fmt.Errorf("decode instruction line %d: %w", lineNo, err)
			}
		}
		out = append(out, ins)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read instructions: %w", err)
	}
	return out, nil
}

// keyDecoder parses several keys and keeps the first error.
type keyDecoder struct {
	err error
}

func (d *keyDecoder) key(field, input string) solana.PublicKey {
	if d.err != nil {
		return solana.PublicKey{}
	}
	key, err := ParsePublicKey(field, input)
	if err != nil {
		d.err = err
	}
	return key
}
