package analytichttp

import (
	"log"
	"mime"

	"github.com/odyssey-erp/odyssey-receivables/internal/spreadsheet"
)

func init() {
	ensureMimeType(".xlsx", spreadsheet.ContentType)
	ensureMimeType(".pdf", pdfContentType)
}

func ensureMimeType(ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		log.Printf("analytichttp: failed to register MIME type for %s: %v", ext, err)
	}
}
