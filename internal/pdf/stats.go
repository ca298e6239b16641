package pdf

import (
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractMetadata safely reads the Info dictionary. Missing or malformed
// entries leave the field empty.
func extractMetadata(r *pdf.Reader) (info DocumentInfo) {
	defer func() {
		// The library panics on some malformed trailers
		if recover() != nil {
			info = DocumentInfo{}
		}
	}()

	trailer := r.Trailer()
	if trailer.IsNull() {
		return info
	}

	dict := trailer.Key("Info")
	if dict.IsNull() {
		return info
	}

	info.Title = infoText(dict, "Title")
	info.Author = infoText(dict, "Author")
	info.Producer = infoText(dict, "Producer")
	info.CreationDate = infoText(dict, "CreationDate")

	return info
}

func infoText(dict pdf.Value, key string) string {
	v := dict.Key(key)
	if v.IsNull() {
		return ""
	}
	return strings.TrimSpace(v.Text())
}
