package ports

import "secure-health-server/internal/model"

// PDFRenderer : формирует PDF-сводку медицинской карты
type PDFRenderer interface {
	Render(patient *model.Patient) ([]byte, error)
}
