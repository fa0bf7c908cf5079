package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/ppiankov/claimaudit/internal/render"
)

// writeOutput renders v as json/yaml, or calls text for the text format
func writeOutput(w io.Writer, format string, v interface{}, text func(io.Writer) error) error {
	switch format {
	case "", "text":
		return text(w)
	case "md":
		return fmt.Errorf("markdown output is only available for the audit command")
	default:
		return render.Encode(w, format, v)
	}
}

func parseClaimID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid claim id %q", arg)
	}
	return id, nil
}
