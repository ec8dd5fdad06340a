package studio

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ashita-ai/kasane/internal/model"
)

// NewOutputID mints "<kind>-<unix ms>-<8 hex>", e.g. notes-1712345678901-1a2b3c4d.
func NewOutputID(t model.OutputType, at time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return t.IDPrefix() + "-" + strconv.FormatInt(at.UnixMilli(), 10) + "-" + suffix
}
