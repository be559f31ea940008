package pdf

import (
	"bytes"
	"fmt"
	"time"

	"secure-health-server/internal/model"
	"secure-health-server/internal/util"

	"github.com/jung-kurt/gofpdf"
)

// Renderer : формирует PDF-сводку медицинской карты.
// Структура документа: шапка, персональные данные, контакты,
// медицинские и финансовые разделы, предупреждение о конфиденциальности.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) Render(patient *model.Patient) ([]byte, error) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetMargins(20, 20, 20)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 16)
	doc.CellFormat(0, 10, "SECURE HEALTH - PATIENT MEDICAL RECORD", "", 1, "C", false, 0, "")
	doc.Ln(4)

	r.section(doc, "PATIENT INFORMATION")
	r.field(doc, "Full Name", patient.FullName)
	r.field(doc, "Date of Birth", patient.DateOfBirth)
	r.field(doc, "Gender", patient.Gender)
	r.field(doc, "National ID", patient.NationalID)

	r.section(doc, "CONTACT INFORMATION")
	r.field(doc, "Phone", patient.Phone)
	r.field(doc, "Email", patient.Email)
	r.field(doc, "Address", patient.Address)

	r.section(doc, "MEDICAL INFORMATION")
	r.field(doc, "Medical History", patient.MedicalHistory)
	r.field(doc, "Diagnosis", patient.Diagnosis)
	r.field(doc, "Lab Results", patient.LabResults)
	r.field(doc, "Imaging Reports", patient.ImagingReports)
	r.field(doc, "Prescriptions", patient.Prescriptions)
	r.field(doc, "Immunizations", patient.Immunizations)

	r.section(doc, "FINANCIAL INFORMATION")
	r.field(doc, "Insurance Details", orNotSpecified(patient.InsuranceDetails))
	r.field(doc, "Payment Information", orNotSpecified(patient.PaymentInfo))
	r.field(doc, "Bank Account", orNotSpecified(patient.BankAccount))

	doc.Ln(10)
	doc.SetFont("Helvetica", "I", 8)
	doc.MultiCell(0, 4, "This document contains confidential patient information. Unauthorized access is prohibited.", "", "L", false)
	doc.MultiCell(0, 4, fmt.Sprintf("Generated on: %s", time.Now().Format("2006-01-02 15:04:05")), "", "L", false)
	doc.MultiCell(0, 4, "Secure Health - Protecting Patient Privacy", "", "L", false)

	var buffer bytes.Buffer
	if err := doc.Output(&buffer); err != nil {
		return nil, util.LogError("[PDFRenderer] не удалось сформировать PDF", err)
	}

	return buffer.Bytes(), nil
}

func (r *Renderer) section(doc *gofpdf.Fpdf, title string) {
	doc.Ln(4)
	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(0, 8, title, "B", 1, "L", false, 0, "")
	doc.Ln(1)
}

func (r *Renderer) field(doc *gofpdf.Fpdf, name string, value string) {
	doc.SetFont("Helvetica", "B", 10)
	doc.CellFormat(45, 6, name+":", "", 0, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	doc.MultiCell(0, 6, value, "", "L", false)
}

func orNotSpecified(value string) string {
	if value == "" {
		return "Not specified"
	}
	return value
}
