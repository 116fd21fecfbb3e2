package export

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	pageWidth    = 215.9
	pageHeight   = 279.4
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	contentWidth = pageWidth - marginLeft - marginRight

	lineRowHeight = 22.0
	qrSize        = 18.0
	tableRowH     = 6.0
)

// WritePDF renders a printable shopping list. Each product with a store link
// gets a QR code so the list can be scanned in the aisle.
func WritePDF(w io.Writer, list ShoppingList) error {
	if len(list.Lines) == 0 {
		return ErrEmptyShoppingList
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(marginLeft, marginTop, marginRight)
	pdf.SetAutoPageBreak(false, marginBottom)
	pdf.AddPage()

	renderHeader(pdf, list)

	idx := 0
	for _, section := range []struct {
		heading string
		kind    LineKind
	}{
		{"Materials to Buy", LineLumber},
		{"Hardware", LineHardware},
	} {
		lines := list.linesOf(section.kind)
		if len(lines) == 0 {
			continue
		}
		ensureSpace(pdf, 8+lineRowHeight)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(contentWidth, 8, section.heading, "", 1, "L", false, 0, "")
		for _, line := range lines {
			ensureSpace(pdf, lineRowHeight)
			if err := renderLine(pdf, idx, line); err != nil {
				return err
			}
			idx++
		}
	}

	ensureSpace(pdf, 12)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(contentWidth-35, 8, "Estimated Total:", "T", 0, "R", true, 0, "")
	pdf.CellFormat(35, 8, "$"+money(list.Total), "T", 1, "R", true, 0, "")

	if len(list.CutList) > 0 {
		renderCutList(pdf, list)
	}

	if len(list.Suggestions) > 0 {
		pdf.Ln(4)
		ensureSpace(pdf, 8+5*float64(len(list.Suggestions)))
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(contentWidth, 7, "Suggestions", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		for _, s := range list.Suggestions {
			pdf.MultiCell(contentWidth, 5, "- "+s, "", "L", false)
		}
	}

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	pdf.CellFormat(contentWidth, 4, "Prices are estimates. Actual prices may vary by location.", "", 0, "C", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func renderHeader(pdf *fpdf.Fpdf, list ShoppingList) {
	title := list.Title
	if title == "" {
		title = "Project"
	}

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentWidth, 10, "Shopping List: "+title, "", 1, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	y := pdf.GetY()
	pdf.Line(marginLeft, y, pageWidth-marginRight, y)
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "", 10)
	summary := fmt.Sprintf("%d board(s) needed  |  %.1f%% waste  |  Estimated total $%s",
		list.TotalBoards, list.WastePercentage, money(list.Total))
	if !list.HardwareTotal.IsZero() {
		summary += fmt.Sprintf(" (lumber $%s, hardware $%s)", money(list.LumberTotal), money(list.HardwareTotal))
	}
	pdf.CellFormat(contentWidth, 6, summary, "", 1, "L", false, 0, "")
	pdf.Ln(3)
}

func renderLine(pdf *fpdf.Fpdf, idx int, line Line) error {
	x, y := marginLeft, pdf.GetY()

	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	pdf.Rect(x, y, contentWidth, lineRowHeight, "D")

	textW := contentWidth - 35 - qrSize - 6
	pdf.SetXY(x+2, y+2)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(textW, 5, line.Name, "", 2, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(90, 90, 90)
	parts := []string{line.Material}
	if line.Dimensions != "" {
		parts = append(parts, line.Dimensions)
	}
	if line.SKU != "" {
		parts = append(parts, "SKU: "+line.SKU)
	}
	detail := strings.Join(parts, "  |  ")
	pdf.CellFormat(textW, 4, detail, "", 2, "L", false, 0, "")
	pdf.CellFormat(textW, 4, fmt.Sprintf("%d x $%s", line.Quantity, money(line.UnitPrice)), "", 0, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)

	pdf.SetXY(x+2+textW, y+2)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(35, 5, "$"+money(line.Total), "", 0, "R", false, 0, "")

	if line.URL != "" {
		png, err := qrcode.Encode(line.URL, qrcode.Medium, 256)
		if err != nil {
			return fmt.Errorf("encode QR code for %q: %w", line.Name, err)
		}
		name := "qr_" + strconv.Itoa(idx)
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
		pdf.ImageOptions(name, x+contentWidth-qrSize-2, y+(lineRowHeight-qrSize)/2, qrSize, qrSize, false, opts, 0, line.URL)
	}

	pdf.SetXY(marginLeft, y+lineRowHeight)
	return nil
}

func renderCutList(pdf *fpdf.Fpdf, list ShoppingList) {
	pdf.Ln(6)
	ensureSpace(pdf, 8+2*tableRowH)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentWidth, 8, "Cut List Reference", "", 1, "L", false, 0, "")

	widths := []float64{70, 20, 60, contentWidth - 150}
	headers := []string{"Part Name", "Qty", "Dimensions", "Material"}

	drawHeader := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, h := range headers {
			pdf.CellFormat(widths[i], tableRowH, h, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
	}

	drawHeader()
	for i, item := range list.CutList {
		if pdf.GetY()+tableRowH > pageHeight-marginBottom-6 {
			pdf.AddPage()
			drawHeader()
		}
		if i%2 == 0 {
			pdf.SetFillColor(248, 248, 248)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		cells := []string{
			item.PartName,
			strconv.Itoa(item.Quantity),
			FormatDimensions(item.Length, item.Width, item.Thickness),
			item.Material,
		}
		for j, c := range cells {
			align := "L"
			if j == 1 {
				align = "R"
			}
			pdf.CellFormat(widths[j], tableRowH, c, "1", 0, align, true, 0, "")
		}
		pdf.Ln(-1)
	}
}

// ensureSpace starts a new page when fewer than h millimetres remain above
// the footer.
func ensureSpace(pdf *fpdf.Fpdf, h float64) {
	if pdf.GetY()+h > pageHeight-marginBottom-6 {
		pdf.AddPage()
	}
}
