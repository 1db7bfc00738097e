package resume

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
)

const docxBody = "word/document.xml"

// extractDOCX returns the text of a .docx file: headers first, then the
// document body, then footers.
func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("extractDOCX: open zip: %w", err)
	}

	var body *zip.File
	var headers, footers []*zip.File
	for _, f := range zr.File {
		name := f.Name
		switch {
		case name == docxBody:
			body = f
		case isPart(name, "header"):
			headers = append(headers, f)
		case isPart(name, "footer"):
			footers = append(footers, f)
		}
	}
	if body == nil {
		return "", errors.New("extractDOCX: word/document.xml not found")
	}

	byName := func(files []*zip.File) {
		sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	}
	byName(headers)
	byName(footers)

	parts := make([]*zip.File, 0, len(headers)+len(footers)+1)
	parts = append(parts, headers...)
	parts = append(parts, body)
	parts = append(parts, footers...)

	var sb strings.Builder
	for _, f := range parts {
		if err := readPartText(f, &sb); err != nil {
			return "", fmt.Errorf("extractDOCX: %s: %w", f.Name, err)
		}
	}

	return sb.String(), nil
}

// isPart matches word/header1.xml, word/footer2.xml and so on.
func isPart(name, kind string) bool {
	dir, file := path.Split(name)
	return dir == "word/" && strings.HasPrefix(file, kind) && strings.HasSuffix(file, ".xml")
}

// readPartText streams a WordprocessingML part, writing the contents of
// every <w:t> run. Tabs and breaks become whitespace and each paragraph
// ends with a newline.
func readPartText(f *zip.File, sb *strings.Builder) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	inText := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br", "cr":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
}
