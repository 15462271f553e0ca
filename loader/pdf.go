package loader

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	pdftypes "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

var (
	linebreakRe = regexp.MustCompile(`\s*\n\s*`)
	multiSpace  = regexp.MustCompile(`\s{2,}`)
)

// ExtractTextFromPDF parses a PDF blob, concatenates the page text and
// collapses whitespace. A parse failure yields an inline error string for
// this document only.
func (e *Extractor) ExtractTextFromPDF(data []byte) string {
	// the pdf library wants a file path, so stage the blob in a temp file
	tmp, err := os.CreateTemp("", "upload-*.pdf")
	if err != nil {
		return fmt.Sprintf("Error reading PDF: %s", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Sprintf("Error reading PDF: %s", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Sprintf("Error reading PDF: %s", err)
	}

	path := tmp.Name()
	if e.pdfCropTop > 0 || e.pdfCropBottom > 0 {
		if cropped, err := cropHeaderFooter(path, e.pdfCropTop, e.pdfCropBottom); err == nil {
			defer os.Remove(cropped)
			path = cropped
		}
		// crop failures fall through to the uncropped document
	}

	f, rdr, err := pdf.Open(path)
	if err != nil {
		return fmt.Sprintf("Error reading PDF: %s", err)
	}
	defer f.Close()

	reader, err := rdr.GetPlainText()
	if err != nil {
		return fmt.Sprintf("Error reading PDF: %s", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return fmt.Sprintf("Error reading PDF: %s", err)
	}

	text := linebreakRe.ReplaceAllString(buf.String(), " ")
	text = multiSpace.ReplaceAllString(text, " ")
	return CollapseWhitespace(text)
}

// cropHeaderFooter cuts top and bottom margins (in points) off every page so
// running headers and footers do not pollute the extracted text.
func cropHeaderFooter(inputPath string, top, bottom float64) (string, error) {
	conf := api.LoadConfiguration()

	cropStr := fmt.Sprintf("%.2f 0 %.2f 0", top, bottom)
	box, err := pdfmodel.ParseBox(cropStr, pdftypes.POINTS)
	if err != nil {
		return "", fmt.Errorf("failed to parse crop box: %w", err)
	}

	outputPath := inputPath + ".cropped.pdf"
	if err := api.CropFile(inputPath, outputPath, []string{"1-"}, box, conf); err != nil {
		return "", fmt.Errorf("failed to crop PDF: %w", err)
	}
	return outputPath, nil
}
