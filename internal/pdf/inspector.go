package pdf

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// InspectError reports a failure of the structural inspection
type InspectError struct {
	Op  string
	Err error
}

func (e *InspectError) Error() string {
	return fmt.Sprintf("pdfcpu %s: %v", e.Op, e.Err)
}

func (e *InspectError) Unwrap() error {
	return e.Err
}

// Inspector reads the PDF structure with pdfcpu in relaxed mode. It is used to
// explain why the text reader could not open a file.
type Inspector struct {
	conf *model.Configuration
}

// NewInspector creates an inspector with relaxed validation
func NewInspector() *Inspector {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Inspector{conf: conf}
}

// Inspect returns page count, header version and encryption state
func (p *Inspector) Inspect(path string) (result *Structure, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &InspectError{Op: "open", Err: err}
	}
	defer file.Close()

	defer func() {
		if rec := recover(); rec != nil {
			result, err = nil, &InspectError{Op: "read", Err: fmt.Errorf("%v", rec)}
		}
	}()

	ctx, err := api.ReadContext(file, p.conf)
	if err != nil {
		return nil, &InspectError{Op: "read", Err: fmt.Errorf("failed to read PDF context: %w", err)}
	}

	result = &Structure{
		Path:      path,
		Encrypted: ctx.Encrypt != nil,
	}
	if ctx.HeaderVersion != nil {
		result.Version = ctx.HeaderVersion.String()
	}

	// Page tree access fails on encrypted files without a password
	if !result.Encrypted {
		if err := ctx.EnsurePageCount(); err != nil {
			return nil, &InspectError{Op: "page_count", Err: err}
		}
		result.Pages = ctx.PageCount
	}

	return result, nil
}
