package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	mw "sme-lending-backend/internal/adapter/middleware"
	docDomain "sme-lending-backend/internal/domain/document"
	"sme-lending-backend/internal/usecase/docgate"
)

type DocumentHandler struct {
	uc *docgate.Usecase
}

func NewDocumentHandler(uc *docgate.Usecase) *DocumentHandler { return &DocumentHandler{uc: uc} }

type verifyDocumentReq struct {
	DocumentType string `json:"document_type" validate:"required,oneof=personal business"`
	DocumentID   string `json:"document_id"   validate:"required,hex32"`
	Outcome      string `json:"outcome"       validate:"required,oneof=pending approved rejected"`
	Reason       string `json:"reason,omitempty"`
}

func (h *DocumentHandler) Verify(c echo.Context) error {
	var req verifyDocumentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	dto, err := h.uc.RecordVerification(c.Request().Context(), c.Param("application_id"), docgate.RecordVerificationInput{
		Ref:     docDomain.Ref{Type: docDomain.Type(req.DocumentType), DocumentID: req.DocumentID},
		Outcome: docDomain.Outcome(req.Outcome),
		Reason:  req.Reason,
	}, mw.ActorFrom(c))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

type upsertDocumentReq struct {
	Type       string `json:"type"        validate:"required,oneof=personal business"`
	OwnerID    string `json:"owner_id"    validate:"required,hex32"`
	FiscalYear int    `json:"fiscal_year" validate:"omitempty,gte=2000,lte=2100"`
	BankName   string `json:"bank_name,omitempty"`
	URL        string `json:"url"         validate:"required,url"`
}

func (h *DocumentHandler) Upsert(c echo.Context) error {
	var req upsertDocumentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	dto, err := h.uc.UpsertDocument(c.Request().Context(), docgate.UpsertDocumentInput{
		Type:       docDomain.Type(req.Type),
		OwnerID:    req.OwnerID,
		FiscalYear: req.FiscalYear,
		BankName:   req.BankName,
		URL:        req.URL,
	}, mw.ActorFrom(c))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
