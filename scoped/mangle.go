package scoped

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// NewSessionID returns short random token used as a suffix for every name
// minted by a single session. Uniqueness is probabilistic, no registry of
// issued tokens is kept.
func NewSessionID() string {
	u := uuid.New()
	return strconv.FormatUint(binary.BigEndian.Uint64(u[:8]), 36)
}

// Mangle appends "_<id>" to name unless name already ends with it.
func Mangle(name, id string) string {
	suffix := "_" + id
	if strings.HasSuffix(name, suffix) {
		return name
	}
	return name + suffix
}
