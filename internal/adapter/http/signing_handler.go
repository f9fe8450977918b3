package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	mw "sme-lending-backend/internal/adapter/middleware"
	contractDomain "sme-lending-backend/internal/domain/contract"
	"sme-lending-backend/internal/usecase/signing"
)

type SigningHandler struct {
	uc *signing.Usecase
}

func NewSigningHandler(uc *signing.Usecase) *SigningHandler { return &SigningHandler{uc: uc} }

type signatoryReq struct {
	Party        string `json:"party"         validate:"required,oneof=company client"`
	Name         string `json:"name"          validate:"required"`
	Email        string `json:"email"         validate:"omitempty,email"`
	SigningOrder int    `json:"signing_order" validate:"omitempty,gte=0"`
}

type uploadContractReq struct {
	Signatories  []signatoryReq `json:"signatories"   validate:"required,min=1,dive"`
	EnforceOrder bool           `json:"enforce_order"`
}

func (h *SigningHandler) UploadContract(c echo.Context) error {
	var req uploadContractReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	in := make([]signing.SignatoryInput, 0, len(req.Signatories))
	for _, s := range req.Signatories {
		in = append(in, signing.SignatoryInput{
			Party:        contractDomain.Party(s.Party),
			Name:         s.Name,
			Email:        s.Email,
			SigningOrder: s.SigningOrder,
		})
	}
	if err := h.uc.UploadContract(c.Request().Context(), c.Param("application_id"), in, req.EnforceOrder, mw.ActorFrom(c)); err != nil {
		return writeDomainError(c, err)
	}
	return c.NoContent(http.StatusCreated)
}

func (h *SigningHandler) SendForSigning(c echo.Context) error {
	status, err := h.uc.SendForSigning(c.Request().Context(), c.Param("application_id"), mw.ActorFrom(c))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"contract_status": string(status)})
}

type signReq struct {
	// RFC3339; defaults to now.
	SignedAt string `json:"signed_at,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

func (h *SigningHandler) Sign(c echo.Context) error {
	var req signReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	signedAt := time.Now().UTC()
	if req.SignedAt != "" {
		signedAt, _ = time.Parse(time.RFC3339, req.SignedAt)
	}
	status, err := h.uc.Advance(c.Request().Context(), c.Param("application_id"), c.Param("signatory_id"), signedAt, mw.ActorFrom(c))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"contract_status": string(status)})
}

func (h *SigningHandler) Void(c echo.Context) error {
	status, err := h.uc.Void(c.Request().Context(), c.Param("application_id"), mw.ActorFrom(c))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"contract_status": string(status)})
}

func (h *SigningHandler) Expire(c echo.Context) error {
	status, err := h.uc.Expire(c.Request().Context(), c.Param("application_id"), mw.ActorFrom(c))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"contract_status": string(status)})
}
