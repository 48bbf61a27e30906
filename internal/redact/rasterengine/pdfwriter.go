package rasterengine

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"
)

// flatPage is one output page: a flattened raster plus its target size in
// points.
type flatPage struct {
	img      *image.RGBA
	ptW, ptH float64
}

// jpegQuality balances scan fidelity against file size. 85 is visually
// lossless for 300 DPI document scans.
const jpegQuality = 85

// writePDF emits a minimal PDF 1.4 document where each page's content is a
// single full-page DCTDecode image XObject. Object layout per page i
// (0-based): page dict, content stream, image stream, allocated after the
// catalog (1) and page tree (2).
func writePDF(w io.Writer, pages []flatPage) error {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	numObjs := 2 + 3*len(pages)
	offsets := make([]int, numObjs+1) // 1-based object numbers

	writeObj := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}
	writeStreamObj := func(num int, dict string, data []byte) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n<< %s /Length %d >>\nstream\n", num, dict, len(data))
		buf.Write(data)
		buf.WriteString("\nendstream\nendobj\n")
	}

	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")

	kids := ""
	for i := range pages {
		if i > 0 {
			kids += " "
		}
		kids += fmt.Sprintf("%d 0 R", 3+3*i)
	}
	writeObj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, len(pages)))

	for i, p := range pages {
		pageNum := 3 + 3*i
		contentNum := pageNum + 1
		imageNum := pageNum + 2

		writeObj(pageNum, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %s %s] /Resources << /XObject << /Im0 %d 0 R >> >> /Contents %d 0 R >>",
			num(p.ptW), num(p.ptH), imageNum, contentNum,
		))

		content := fmt.Sprintf("q\n%s 0 0 %s 0 0 cm\n/Im0 Do\nQ\n", num(p.ptW), num(p.ptH))
		writeStreamObj(contentNum, "", []byte(content))

		var jpg bytes.Buffer
		if err := jpeg.Encode(&jpg, p.img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return fmt.Errorf("encode page %d: %w", i+1, err)
		}
		bounds := p.img.Bounds()
		writeStreamObj(imageNum, fmt.Sprintf(
			"/Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /DCTDecode",
			bounds.Dx(), bounds.Dy(),
		), jpg.Bytes())
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", numObjs+1)
	buf.WriteString("0000000000 65535 f \n")
	for n := 1; n <= numObjs; n++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[n])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", numObjs+1, xrefOffset)

	_, err := w.Write(buf.Bytes())
	return err
}

// num formats a PDF number without a trailing fractional tail.
func num(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}
