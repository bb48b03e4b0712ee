package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kosarica/purchase-optimizer/internal/middleware"
	"github.com/kosarica/purchase-optimizer/internal/optimizer"
	"github.com/kosarica/purchase-optimizer/internal/parsers/xlsx"
	"github.com/kosarica/purchase-optimizer/internal/solver"
)

// maxWorkbookBytes caps uploaded problem workbooks.
const maxWorkbookBytes = 10 << 20

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ItemRequest is one item the customer wants to buy.
type ItemRequest struct {
	Name     string `json:"name" binding:"required" jsonschema:"minLength=1"`
	Quantity int    `json:"quantity" binding:"min=0" jsonschema:"minimum=0"`
}

// RetailerRequest is one retailer with its shipping terms.
type RetailerRequest struct {
	Name                  string  `json:"name" binding:"required" jsonschema:"minLength=1"`
	Shipping              float64 `json:"shipping" binding:"min=0" jsonschema:"minimum=0"`
	FreeShippingThreshold float64 `json:"freeShippingThreshold" binding:"min=0" jsonschema:"minimum=0"`
}

// OptionsRequest overrides the configured formulation defaults.
type OptionsRequest struct {
	AllowSurplusForSavings *bool    `json:"allowSurplusForSavings,omitempty"`
	IntegerQuantities      *bool    `json:"integerQuantities,omitempty"`
	BigMMargin             *float64 `json:"bigMMargin,omitempty" jsonschema:"exclusiveMinimum=0"`
}

// OptimizeRequest describes a purchase problem. Prices and Inventory are
// indexed [item][retailer] in request order.
type OptimizeRequest struct {
	Items     []ItemRequest     `json:"items" binding:"dive"`
	Retailers []RetailerRequest `json:"retailers" binding:"dive"`
	Prices    [][]float64       `json:"prices"`
	Inventory [][]int           `json:"inventory"`
	Options   *OptionsRequest   `json:"options,omitempty"`
	SolverID  string            `json:"solverId,omitempty"`
}

// RetailerBillResponse is the bill at one retailer.
type RetailerBillResponse struct {
	Retailer     string  `json:"retailer"`
	ItemBill     float64 `json:"itemBill"`
	ShippingBill float64 `json:"shippingBill"`
	TotalBill    float64 `json:"totalBill"`
	PaysShipping bool    `json:"paysShipping"`
}

// OptimizeResponse is the outcome of an optimization. Plan fields are set
// only when status is "optimal".
type OptimizeResponse struct {
	RunID         string                        `json:"runId"`
	Status        string                        `json:"status" jsonschema:"enum=optimal,enum=infeasible,enum=unbounded,enum=not_solved"`
	SolverID      string                        `json:"solverId"`
	TotalCost     float64                       `json:"totalCost"`
	ItemTotal     float64                       `json:"itemTotal"`
	ShippingTotal float64                       `json:"shippingTotal"`
	Quantities    map[string]map[string]float64 `json:"quantities,omitempty"`
	Bills         []RetailerBillResponse        `json:"bills,omitempty"`
	Surplus       map[string]float64            `json:"surplus,omitempty"`
	Nodes         int                           `json:"nodes"`
	DurationMs    float64                       `json:"durationMs"`
}

// SolversResponse lists registered solver ids.
type SolversResponse struct {
	Default string   `json:"default"`
	Solvers []string `json:"solvers"`
}

// ErrorResponse is returned for rejected requests.
type ErrorResponse struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// OptimizeHandler serves the optimization endpoints.
type OptimizeHandler struct {
	optimizer optimizer.Optimizer
	config    *optimizer.Config
}

// NewOptimizeHandler creates a handler backed by opt. config supplies the
// formulation defaults and the default solver.
func NewOptimizeHandler(opt optimizer.Optimizer, config *optimizer.Config) *OptimizeHandler {
	if config == nil {
		config = optimizer.Defaults()
	}
	return &OptimizeHandler{optimizer: opt, config: config}
}

// Optimize solves a purchase problem given as JSON.
// @Summary Optimize a purchase
// @Description Chooses how many units of each item to buy from each retailer to minimize item cost plus shipping.
// @Tags optimize
// @Accept json
// @Produce json
// @Param request body OptimizeRequest true "Purchase problem"
// @Success 200 {object} OptimizeResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/optimize [post]
func (h *OptimizeHandler) Optimize(c *gin.Context) {
	var req OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), RequestID: middleware.GetRequestID(c)})
		return
	}

	opts, err := h.problemOptions(req.Options)
	if err != nil {
		h.fail(c, err)
		return
	}
	result, err := h.run(c.Request.Context(), req.toInput(), opts, req.SolverID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newOptimizeResponse(result))
}

// OptimizeWorkbook solves a problem uploaded as a workbook and returns the
// result workbook.
// @Summary Optimize a purchase from a workbook
// @Description Accepts the four-sheet problem workbook and returns the result workbook when an optimal plan exists, otherwise a JSON status.
// @Tags optimize
// @Accept mpfd
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce json
// @Param file formData file true "Problem workbook"
// @Param solverId query string false "Solver id"
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/optimize/workbook [post]
func (h *OptimizeHandler) OptimizeWorkbook(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing workbook file", RequestID: middleware.GetRequestID(c)})
		return
	}
	if header.Size > maxWorkbookBytes {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "workbook too large", RequestID: middleware.GetRequestID(c)})
		return
	}
	file, err := header.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxWorkbookBytes))
	if err != nil {
		h.fail(c, err)
		return
	}

	parsed, err := xlsx.NewParser(xlsx.DefaultOptions()).Parse(content, header.Filename)
	if err != nil {
		h.fail(c, err)
		return
	}
	for _, w := range parsed.Warnings {
		middleware.Logger(c).Warn().Str("sheet", w.Sheet).Int("row", w.Row).Msg(w.Message)
	}

	result, err := h.run(c.Request.Context(), parsed.Input, h.config.ProblemOptions(), c.Query("solverId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !result.IsOptimal() {
		c.JSON(http.StatusOK, newOptimizeResponse(result))
		return
	}

	body, err := xlsx.ResultBytes(result.Plan, result.Billing)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="result.xlsx"`)
	c.Header("X-Run-ID", result.RunID)
	c.Data(http.StatusOK, xlsxContentType, body)
}

// ListSolvers lists the registered solver ids.
// @Summary List solvers
// @Tags optimize
// @Produce json
// @Success 200 {object} SolversResponse
// @Router /api/v1/solvers [get]
func (h *OptimizeHandler) ListSolvers(c *gin.Context) {
	c.JSON(http.StatusOK, SolversResponse{
		Default: h.config.SolverID,
		Solvers: h.optimizer.Solvers(),
	})
}

func (h *OptimizeHandler) run(ctx context.Context, in optimizer.ProblemInput, opts optimizer.ProblemOptions, solverID string) (*optimizer.Result, error) {
	p, err := optimizer.NewProblem(in, opts)
	if err != nil {
		return nil, err
	}
	return h.optimizer.Optimize(ctx, p, solverID)
}

func (h *OptimizeHandler) problemOptions(o *OptionsRequest) (optimizer.ProblemOptions, error) {
	opts := h.config.ProblemOptions()
	if o == nil {
		return opts, nil
	}
	if o.AllowSurplusForSavings != nil {
		opts.AllowSurplusForSavings = *o.AllowSurplusForSavings
	}
	if o.IntegerQuantities != nil {
		opts.IntegerQuantities = *o.IntegerQuantities
	}
	if o.BigMMargin != nil {
		if *o.BigMMargin <= 0 {
			return opts, optimizer.ErrInvalidRequest{Field: "options.bigMMargin", Reason: "must be strictly positive"}
		}
		opts.BigMMargin = *o.BigMMargin
	}
	return opts, nil
}

// fail maps err to a status code: bad input is 400, anything else 500.
func (h *OptimizeHandler) fail(c *gin.Context, err error) {
	resp := ErrorResponse{Error: err.Error(), RequestID: middleware.GetRequestID(c)}
	status := http.StatusInternalServerError

	var (
		invalidReq   optimizer.ErrInvalidRequest
		invalidValue optimizer.ErrInvalidValue
		mismatch     *optimizer.DimensionMismatch
		parseErr     *xlsx.ParseError
	)
	switch {
	case errors.As(err, &invalidReq):
		status, resp.Field = http.StatusBadRequest, invalidReq.Field
	case errors.As(err, &invalidValue):
		status, resp.Field = http.StatusBadRequest, invalidValue.Field
	case errors.As(err, &mismatch):
		status = http.StatusBadRequest
	case errors.As(err, &parseErr):
		status = http.StatusBadRequest
	case errors.Is(err, solver.ErrUnknownSolver):
		status, resp.Field = http.StatusBadRequest, "solverId"
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	if status >= http.StatusInternalServerError {
		middleware.Logger(c).Error().Err(err).Msg("Optimization failed")
	}
	c.JSON(status, resp)
}

func (r *OptimizeRequest) toInput() optimizer.ProblemInput {
	in := optimizer.ProblemInput{
		Items:      make([]string, len(r.Items)),
		Desired:    make([]int, len(r.Items)),
		Retailers:  make([]string, len(r.Retailers)),
		Prices:     r.Prices,
		Inventory:  r.Inventory,
		Shipping:   make([]float64, len(r.Retailers)),
		Thresholds: make([]float64, len(r.Retailers)),
	}
	for i, it := range r.Items {
		in.Items[i] = it.Name
		in.Desired[i] = it.Quantity
	}
	for j, rt := range r.Retailers {
		in.Retailers[j] = rt.Name
		in.Shipping[j] = rt.Shipping
		in.Thresholds[j] = rt.FreeShippingThreshold
	}
	return in
}

func newOptimizeResponse(r *optimizer.Result) *OptimizeResponse {
	resp := &OptimizeResponse{
		RunID:      r.RunID,
		Status:     r.Status.String(),
		SolverID:   r.SolverID,
		Nodes:      r.Nodes,
		DurationMs: float64(r.Duration.Microseconds()) / 1000,
	}
	if !r.IsOptimal() {
		return resp
	}

	resp.TotalCost = r.Billing.GrandTotal
	resp.ItemTotal = r.Billing.ItemTotal
	resp.ShippingTotal = r.Billing.ShippingTotal
	resp.Quantities = r.Plan.Quantities
	resp.Surplus = r.Surplus
	for _, b := range r.Billing.Retailers {
		resp.Bills = append(resp.Bills, RetailerBillResponse{
			Retailer:     b.Retailer,
			ItemBill:     b.ItemBill,
			ShippingBill: b.ShippingBill,
			TotalBill:    b.TotalBill,
			PaysShipping: b.PaysShipping,
		})
	}
	return resp
}

// RegisterRoutes registers the optimization routes on r.
func RegisterRoutes(r *gin.RouterGroup, opt optimizer.Optimizer, config *optimizer.Config) {
	handler := NewOptimizeHandler(opt, config)

	r.POST("/optimize", handler.Optimize)
	r.POST("/optimize/workbook", handler.OptimizeWorkbook)
	r.GET("/solvers", handler.ListSolvers)
}
