package shard

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

// SheetText is one spreadsheet sheet's extracted text, keyed by
// sheet title.
type SheetText struct {
	SheetName string
	Text      string
}

// ConvertExcel extracts per-sheet text: one shard per sheet, body is
// tab-joined rows line by line, grounded on docs_lake_initializer.py's
// convert_excel_to_text.
func ConvertExcel(path string) ([]SheetText, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open excel %s: %w", path, err)
	}
	defer f.Close()

	var out []SheetText
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			continue
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Sheet: %s\n", name)
		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteString("\n")
		}
		out = append(out, SheetText{SheetName: name, Text: b.String()})
	}
	return out, nil
}

// ConvertPDF extracts per-page text, grounded on convert_pdf_to_text.
func ConvertPDF(path string) ([]string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	var pages []string
	total := r.NumPage()
	for i := 1; i <= total; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) != "" {
			pages = append(pages, text)
		}
	}
	return pages, nil
}

// ConvertWord extracts text from docx/odt, splitting on form-feed the
// way docx2txt's output was split in convert_word_to_text; since the
// Go OOXML/ODF readers below don't emit form-feeds, the whole document
// becomes a single page (matching the "no form-feeds present" branch
// of the original, which falls back to one page).
func ConvertWord(path string) ([]string, error) {
	ext := strings.ToLower(pathExt(path))
	var text string
	var err error
	switch ext {
	case ".docx":
		text, err = extractDocx(path)
	case ".odt":
		text, err = extractODT(path)
	case ".doc":
		text, err = extractLegacyBinaryText(path)
	default:
		return nil, fmt.Errorf("unsupported word format %q", ext)
	}
	if err != nil {
		return nil, err
	}

	pages := splitFormFeed(text)
	if len(pages) == 0 {
		pages = []string{text}
	}
	return pages, nil
}

// ConvertPresentation extracts per-slide text, grounded on
// convert_ppt_to_text.
func ConvertPresentation(path string) ([]string, error) {
	ext := strings.ToLower(pathExt(path))
	if ext == ".ppt" {
		text, err := extractLegacyBinaryText(path)
		if err != nil {
			return nil, err
		}
		return []string{text}, nil
	}
	return extractPptx(path)
}

func splitFormFeed(text string) []string {
	var out []string
	for _, piece := range strings.Split(text, "\f") {
		if strings.TrimSpace(piece) != "" {
			out = append(out, piece)
		}
	}
	return out
}

// extractDocx reads word/document.xml from the OOXML zip and
// concatenates every <w:t> run's text.
func extractDocx(path string) (string, error) {
	return extractZipXMLText(path, "word/document.xml", "t")
}

// extractPptx reads ppt/slides/slideN.xml in ascending order; each
// slide's shape texts (the <a:t> runs) are concatenated into one
// shard, labeled by slide number.
func extractPptx(path string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open pptx %s: %w", path, err)
	}
	defer zr.Close()

	slides := make(map[int]*zip.File)
	maxSlide := 0
	for _, f := range zr.File {
		var n int
		if _, scanErr := fmt.Sscanf(f.Name, "ppt/slides/slide%d.xml", &n); scanErr == nil {
			slides[n] = f
			if n > maxSlide {
				maxSlide = n
			}
		}
	}

	var out []string
	for i := 1; i <= maxSlide; i++ {
		f, ok := slides[i]
		if !ok {
			continue
		}
		text, err := readZipFileText(f, "t")
		if err != nil {
			continue
		}
		out = append(out, fmt.Sprintf("Slide: %d\n%s", i, text))
	}
	return out, nil
}

// extractODT extracts content.xml's text:p text runs.
func extractODT(path string) (string, error) {
	return extractZipXMLText(path, "content.xml", "p")
}

func extractZipXMLText(path, member, localName string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name == member {
			return readZipFileText(f, localName)
		}
	}
	return "", fmt.Errorf("%s: member %s not found", path, member)
}

// readZipFileText decodes an XML member, collecting character data
// inside any element whose local name matches localName (namespace
// prefix ignored, so "w:t" / "a:t" / "text:p" all match via their
// local part).
func readZipFileText(f *zip.File, localName string) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	var b strings.Builder
	inTarget := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return b.String(), nil
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == localName {
				inTarget++
			}
		case xml.EndElement:
			if t.Name.Local == localName {
				inTarget--
				b.WriteString("\n")
			}
		case xml.CharData:
			if inTarget > 0 {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}

// extractLegacyBinaryText is the best-effort fallback for legacy
// binary formats (.doc, .ppt) with no pack-grounded parser available:
// it scans for printable-text runs and joins them with spaces. This
// is deliberately approximate; see DESIGN.md.
func extractLegacyBinaryText(path string) (string, error) {
	data, err := readFileAll(path)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	runStart := -1
	flush := func(end int) {
		if runStart < 0 {
			return
		}
		if end-runStart >= 4 {
			b.Write(data[runStart:end])
			b.WriteString(" ")
		}
		runStart = -1
	}
	for i, c := range data {
		if c >= 0x20 && c < 0x7f {
			if runStart < 0 {
				runStart = i
			}
		} else {
			flush(i)
		}
	}
	flush(len(data))
	return b.String(), nil
}

func pathExt(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return ""
	}
	return path[i:]
}
