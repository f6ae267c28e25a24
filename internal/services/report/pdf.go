package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// markdownToPDF renders report markdown to an A4 PDF. Headings,
// paragraphs, emphasis, lists and tables are supported; that covers
// everything the report writer produces.
func markdownToPDF(source []byte) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	pdf.AddPage()
	pdf.SetFont("Arial", "", 9)

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	doc := md.Parser().Parse(text.NewReader(source))

	r := &pdfRenderer{pdf: pdf, source: source}
	if err := ast.Walk(doc, r.walk); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF output: %w", err)
	}
	return buf.Bytes(), nil
}

type pdfRenderer struct {
	pdf    *fpdf.Fpdf
	source []byte
	bold   bool
	italic bool
	inList bool
}

func (r *pdfRenderer) resetFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.pdf.SetFont("Arial", style, 9)
}

func (r *pdfRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			r.pdf.Ln(5)
			size := 14.0 - float64(node.Level)
			if size < 10 {
				size = 10
			}
			r.pdf.SetFont("Arial", "B", size)
		} else {
			r.pdf.Ln(6)
			r.resetFont()
		}
	case *ast.Paragraph:
		if !entering {
			r.pdf.Ln(6)
		}
	case *ast.Text:
		if entering {
			r.pdf.Write(5, string(node.Text(r.source)))
		}
	case *ast.Emphasis:
		if node.Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.resetFont()
	case *ast.List:
		r.inList = entering
		if !entering {
			r.pdf.Ln(2)
		}
	case *ast.ListItem:
		if entering {
			r.pdf.Ln(5)
			r.pdf.SetX(15)
			r.pdf.Write(5, "- ")
		}
	case *ast.ThematicBreak:
		if entering {
			r.pdf.Ln(2)
			r.pdf.Line(15, r.pdf.GetY(), 195, r.pdf.GetY())
			r.pdf.Ln(2)
		}
	case *extast.Table:
		if entering {
			r.renderTable(node)
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}

func (r *pdfRenderer) renderTable(table *extast.Table) {
	var rows [][]string
	var collect func(node ast.Node)
	collect = func(node ast.Node) {
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			if _, ok := child.(*extast.TableRow); ok {
				rows = append(rows, r.rowCells(child))
			} else if _, ok := child.(*extast.TableHeader); ok {
				if cells := r.rowCells(child); len(cells) > 0 {
					rows = append(rows, cells)
				} else {
					collect(child)
				}
			}
		}
	}
	collect(table)

	if len(rows) == 0 {
		return
	}

	colWidth := 190.0 / float64(len(rows[0]))
	r.pdf.Ln(2)
	for i, row := range rows {
		if i == 0 {
			r.pdf.SetFont("Arial", "B", 9)
		}
		for _, cell := range row {
			r.pdf.CellFormat(colWidth, 6, cell, "1", 0, "L", false, 0, "")
		}
		r.pdf.Ln(-1)
		if i == 0 {
			r.resetFont()
		}
	}
	r.pdf.Ln(2)
}

func (r *pdfRenderer) rowCells(row ast.Node) []string {
	var cells []string
	for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if _, ok := cell.(*extast.TableCell); ok {
			cells = append(cells, string(cell.Text(r.source)))
		}
	}
	return cells
}
