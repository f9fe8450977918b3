package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	mw "sme-lending-backend/internal/adapter/middleware"
	productDomain "sme-lending-backend/internal/domain/product"
	productUC "sme-lending-backend/internal/usecase/product"
)

type ProductHandler struct {
	uc *productUC.Usecase
}

func NewProductHandler(uc *productUC.Usecase) *ProductHandler { return &ProductHandler{uc: uc} }

type createProductReq struct {
	OrganizationID string `json:"organization_id" validate:"required,hex32"`
	Name           string `json:"name"            validate:"required"`
	Description    string `json:"description,omitempty"`

	Currency      string  `json:"currency"        validate:"required,len=3"`
	MinAmount     float64 `json:"min_amount"      validate:"required,gt=0,dec2"`
	MaxAmount     float64 `json:"max_amount"      validate:"required,gt=0,dec2"`
	MinTermMonths int     `json:"min_term_months" validate:"required,gte=1"`
	MaxTermMonths int     `json:"max_term_months" validate:"required,gte=1"`

	InterestRate              float64 `json:"interest_rate"               validate:"required,gt=0"`
	RatePeriod                string  `json:"rate_period"                 validate:"required,oneof=monthly yearly"`
	AmortizationMethod        string  `json:"amortization_method"         validate:"required,oneof=annuity flat"`
	RepaymentFrequency        string  `json:"repayment_frequency"         validate:"required,oneof=monthly quarterly"`
	InterestCollectionMethod  string  `json:"interest_collection_method"  validate:"omitempty"`
	InterestRecognitionMethod string  `json:"interest_recognition_method" validate:"omitempty"`
}

func (h *ProductHandler) Create(c echo.Context) error {
	var req createProductReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	p, err := h.uc.Create(c.Request().Context(), productUC.CreateInput{
		OrganizationID:            req.OrganizationID,
		Name:                      req.Name,
		Description:               req.Description,
		Currency:                  req.Currency,
		MinAmount:                 decimal.NewFromFloat(req.MinAmount),
		MaxAmount:                 decimal.NewFromFloat(req.MaxAmount),
		MinTermMonths:             req.MinTermMonths,
		MaxTermMonths:             req.MaxTermMonths,
		InterestRate:              decimal.NewFromFloat(req.InterestRate),
		RatePeriod:                req.RatePeriod,
		AmortizationMethod:        req.AmortizationMethod,
		RepaymentFrequency:        req.RepaymentFrequency,
		InterestCollectionMethod:  req.InterestCollectionMethod,
		InterestRecognitionMethod: req.InterestRecognitionMethod,
	}, mw.ActorFrom(c))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *ProductHandler) Get(c echo.Context) error {
	p, err := h.uc.Get(c.Request().Context(), c.Param("product_id"))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

type productStatusReq struct {
	Status string `json:"status" validate:"required,oneof=draft active archived"`
	Reason string `json:"reason,omitempty"`
}

func (h *ProductHandler) TransitionStatus(c echo.Context) error {
	var req productStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	p, err := h.uc.TransitionStatus(c.Request().Context(), c.Param("product_id"), productDomain.Status(req.Status), req.Reason, mw.ActorFrom(c))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

type editProductReq struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`

	MinAmount     *float64 `json:"min_amount,omitempty"      validate:"omitempty,gt=0,dec2"`
	MaxAmount     *float64 `json:"max_amount,omitempty"      validate:"omitempty,gt=0,dec2"`
	MinTermMonths *int     `json:"min_term_months,omitempty" validate:"omitempty,gte=1"`
	MaxTermMonths *int     `json:"max_term_months,omitempty" validate:"omitempty,gte=1"`

	InterestRate              *float64 `json:"interest_rate,omitempty" validate:"omitempty,gt=0"`
	RatePeriod                *string  `json:"rate_period,omitempty"   validate:"omitempty,oneof=monthly yearly"`
	AmortizationMethod        *string  `json:"amortization_method,omitempty" validate:"omitempty,oneof=annuity flat"`
	RepaymentFrequency        *string  `json:"repayment_frequency,omitempty" validate:"omitempty,oneof=monthly quarterly"`
	InterestCollectionMethod  *string  `json:"interest_collection_method,omitempty"`
	InterestRecognitionMethod *string  `json:"interest_recognition_method,omitempty"`
}

func (h *ProductHandler) Edit(c echo.Context) error {
	var req editProductReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	in := productUC.EditInput{
		Name:                      req.Name,
		Description:               req.Description,
		MinTermMonths:             req.MinTermMonths,
		MaxTermMonths:             req.MaxTermMonths,
		RatePeriod:                req.RatePeriod,
		AmortizationMethod:        req.AmortizationMethod,
		RepaymentFrequency:        req.RepaymentFrequency,
		InterestCollectionMethod:  req.InterestCollectionMethod,
		InterestRecognitionMethod: req.InterestRecognitionMethod,
	}
	if req.MinAmount != nil {
		d := decimal.NewFromFloat(*req.MinAmount)
		in.MinAmount = &d
	}
	if req.MaxAmount != nil {
		d := decimal.NewFromFloat(*req.MaxAmount)
		in.MaxAmount = &d
	}
	if req.InterestRate != nil {
		d := decimal.NewFromFloat(*req.InterestRate)
		in.InterestRate = &d
	}

	p, err := h.uc.ApplyEdit(c.Request().Context(), c.Param("product_id"), in, mw.ActorFrom(c))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}
