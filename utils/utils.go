// Package utils provides helpers shared by the gateway services.
package utils

import (
	"crypto/rand"
	"math/big"
)

// TemplateIDPrefix starts every generated template id.
const TemplateIDPrefix = "tpl_"

// charset holds the characters of the random part of a template id. It is a
// subset of the query encoder's safe set so ids never need escaping.
const charset = "abcdefghijklmnopqrstuvwxyz0123456789"

// templateIDLength is the length of the random part.
const templateIDLength = 16

// GenerateTemplateID creates a new random template id.
func GenerateTemplateID() (string, error) {
	id := make([]byte, len(TemplateIDPrefix)+templateIDLength)
	copy(id, TemplateIDPrefix)
	charsetLength := big.NewInt(int64(len(charset)))

	for i := len(TemplateIDPrefix); i < len(id); i++ {
		randomIndex, err := rand.Int(rand.Reader, charsetLength)
		if err != nil {
			return "", err
		}
		id[i] = charset[randomIndex.Int64()]
	}
	return string(id), nil
}
