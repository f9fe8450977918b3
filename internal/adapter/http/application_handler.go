package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	appDomain "sme-lending-backend/internal/domain/application"
	mw "sme-lending-backend/internal/adapter/middleware"
	"sme-lending-backend/internal/usecase/audittrail"
	"sme-lending-backend/internal/usecase/pipeline"
)

type ApplicationHandler struct {
	uc    *pipeline.Usecase
	trail *audittrail.Usecase
}

func NewApplicationHandler(uc *pipeline.Usecase, trail *audittrail.Usecase) *ApplicationHandler {
	return &ApplicationHandler{uc: uc, trail: trail}
}

type createApplicationReq struct {
	BusinessID     string `json:"business_id"     validate:"required,hex32"`
	EntrepreneurID string `json:"entrepreneur_id" validate:"required,hex32"`
	ProductID      string `json:"product_id"      validate:"required,hex32"`

	FundingAmount         float64 `json:"funding_amount"          validate:"required,gt=0,dec2"`
	Currency              string  `json:"currency"                validate:"required,len=3"`
	RepaymentPeriodMonths int     `json:"repayment_period_months" validate:"required,gte=1"`

	ConvertedAmount *float64 `json:"converted_amount,omitempty" validate:"omitempty,gt=0"`
	ExchangeRate    *float64 `json:"exchange_rate,omitempty"    validate:"omitempty,gt=0"`

	// Canonical date `YYYY-MM-DD`
	FirstPaymentDate string `json:"first_payment_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	GracePeriodDays  int    `json:"grace_period_days,omitempty"  validate:"omitempty,gte=0"`
}

func (h *ApplicationHandler) Create(c echo.Context) error {
	var req createApplicationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	in := pipeline.SubmitInput{
		BusinessID:            req.BusinessID,
		EntrepreneurID:        req.EntrepreneurID,
		ProductID:             req.ProductID,
		FundingAmount:         decimal.NewFromFloat(req.FundingAmount),
		Currency:              req.Currency,
		RepaymentPeriodMonths: req.RepaymentPeriodMonths,
		GracePeriodDays:       req.GracePeriodDays,
	}
	if req.ConvertedAmount != nil {
		d := decimal.NewFromFloat(*req.ConvertedAmount)
		in.ConvertedAmount = &d
	}
	if req.ExchangeRate != nil {
		d := decimal.NewFromFloat(*req.ExchangeRate)
		in.ExchangeRate = &d
	}
	if req.FirstPaymentDate != "" {
		t, _ := time.Parse("2006-01-02", req.FirstPaymentDate)
		in.FirstPaymentDate = &t
	}

	dto, err := h.uc.Submit(c.Request().Context(), in, mw.ActorFrom(c))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *ApplicationHandler) Get(c echo.Context) error {
	dto, err := h.uc.Get(c.Request().Context(), c.Param("application_id"))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

type transitionReq struct {
	Status       string `json:"status"         validate:"required"`
	Comment      string `json:"comment,omitempty"`
	TermSheetURL string `json:"term_sheet_url,omitempty" validate:"omitempty,url"`
	Reason       string `json:"reason,omitempty"`
}

func (h *ApplicationHandler) Transition(c echo.Context) error {
	var req transitionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	dto, err := h.uc.Transition(c.Request().Context(), c.Param("application_id"), pipeline.TransitionInput{
		Requested:    appDomain.Status(req.Status),
		Comment:      req.Comment,
		TermSheetURL: req.TermSheetURL,
		Reason:       req.Reason,
	}, mw.ActorFrom(c))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *ApplicationHandler) Audit(c echo.Context) error {
	f := audittrail.ReadFilter{}
	if v := c.QueryParam("event_type"); v != "" {
		f.EventTypes = []string{v}
	}
	events, err := h.trail.Read(c.Request().Context(), c.Param("application_id"), f)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"events": events})
}
