package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	mw "sme-lending-backend/internal/adapter/middleware"
	versionDomain "sme-lending-backend/internal/domain/version"
	"sme-lending-backend/internal/usecase/versioning"
	"sme-lending-backend/pkg/schedule"
)

type VersionHandler struct {
	uc *versioning.Usecase
}

func NewVersionHandler(uc *versioning.Usecase) *VersionHandler { return &VersionHandler{uc: uc} }

type feeReq struct {
	Name   string  `json:"name"   validate:"required"`
	Amount float64 `json:"amount" validate:"required,gt=0,dec2"`
	Type   string  `json:"type"   validate:"required,oneof=flat percentage"`
}

type counterOfferReq struct {
	FundingAmount      float64  `json:"funding_amount"      validate:"required,gt=0,dec2"`
	Currency           string   `json:"currency"            validate:"required,len=3"`
	InterestRate       float64  `json:"interest_rate"       validate:"required,gt=0"`
	RatePeriod         string   `json:"rate_period"         validate:"required,oneof=monthly yearly"`
	RepaymentStructure string   `json:"repayment_structure" validate:"required,oneof=annuity flat"`
	RepaymentCycle     string   `json:"repayment_cycle"     validate:"required,oneof=monthly quarterly"`
	TermMonths         int      `json:"term_months"         validate:"required,gte=1"`
	GracePeriodDays    int      `json:"grace_period_days"   validate:"omitempty,gte=0"`
	FirstPaymentDate   string   `json:"first_payment_date"  validate:"omitempty,datetime=2006-01-02"`
	Fees               []feeReq `json:"fees"                validate:"omitempty,dive"`
}

func (h *VersionHandler) CreateCounterOffer(c echo.Context) error {
	var req counterOfferReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	in := versioning.TermsInput{
		FundingAmount:      decimal.NewFromFloat(req.FundingAmount),
		Currency:           req.Currency,
		InterestRate:       decimal.NewFromFloat(req.InterestRate),
		RatePeriod:         req.RatePeriod,
		RepaymentStructure: req.RepaymentStructure,
		RepaymentCycle:     req.RepaymentCycle,
		TermMonths:         req.TermMonths,
		GracePeriodDays:    req.GracePeriodDays,
	}
	if req.FirstPaymentDate != "" {
		t, _ := time.Parse("2006-01-02", req.FirstPaymentDate)
		in.FirstPaymentDate = &t
	}
	for _, f := range req.Fees {
		in.Fees = append(in.Fees, versionDomain.Fee{
			Name:   f.Name,
			Amount: decimal.NewFromFloat(f.Amount),
			Type:   f.Type,
		})
	}

	dto, err := h.uc.CreateCounterOffer(c.Request().Context(), c.Param("application_id"), in, mw.ActorFrom(c))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

type activateReq struct {
	// Public id of the version the caller believes is currently active; a
	// stale value yields 409.
	ExpectedActiveVersionID *string `json:"expected_active_version_id,omitempty" validate:"omitempty,hex32"`
}

func (h *VersionHandler) Activate(c echo.Context) error {
	var req activateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	err := h.uc.Activate(c.Request().Context(), c.Param("application_id"), c.Param("version_id"), req.ExpectedActiveVersionID, mw.ActorFrom(c))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *VersionHandler) List(c echo.Context) error {
	out, err := h.uc.List(c.Request().Context(), c.Param("application_id"))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"versions": out})
}

// Schedule previews the repayment schedule of the active version.
func (h *VersionHandler) Schedule(c echo.Context) error {
	versions, err := h.uc.List(c.Request().Context(), c.Param("application_id"))
	if err != nil {
		return writeDomainError(c, err)
	}
	for _, v := range versions {
		if !v.Active {
			continue
		}
		in := schedule.Input{
			Principal:  v.FundingAmount,
			AnnualRate: v.InterestRate,
			TermMonths: v.TermMonths,
			Structure:  schedule.Structure(v.RepaymentStructure),
			Cycle:      schedule.Cycle(v.RepaymentCycle),
			GraceDays:  v.GracePeriodDays,
		}
		if v.FirstPaymentDate != nil {
			in.FirstPaymentDate = *v.FirstPaymentDate
		}
		rows, err := schedule.Build(in)
		if err != nil {
			return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]any{"version_id": v.VersionID, "installments": rows})
	}
	return c.JSON(http.StatusNotFound, ErrorResponse{Error: "no active version"})
}
