package api

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/smartspend/internal/metrics"
	"github.com/insightdelivered/smartspend/internal/models"
	"github.com/insightdelivered/smartspend/internal/parser"
	"github.com/insightdelivered/smartspend/internal/writer"
)

const version = "1.0.0"

// Store is the persistence the API needs.
type Store interface {
	CreateGoal(ctx context.Context, goal models.Goal) (uint, error)
	ActiveGoal(ctx context.Context) (*models.Goal, error)
	UpdateMonthlyBudget(ctx context.Context, goalID uint, budget decimal.Decimal) error
	AddTransaction(ctx context.Context, date, description string, amount decimal.Decimal, direction models.Direction, goalID uint) (*models.Transaction, error)
	Transactions(ctx context.Context) ([]models.Transaction, error)
	GoalTransactions(ctx context.Context, goalID uint) ([]models.Transaction, error)
	DeleteTransaction(ctx context.Context, id uint) error
}

// Response is the JSON envelope for every endpoint.
type Response struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ImportResponse reports a statement import.
type ImportResponse struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Batch   string `json:"batch"`
	GoalID  uint   `json:"goalId"`
}

// GoalRequest is the body of POST /api/goals.
type GoalRequest struct {
	SavingFor     string          `json:"savingFor"`
	SavingAmount  decimal.Decimal `json:"savingAmount"`
	Deadline      string          `json:"deadline"`
	MonthlyBudget decimal.Decimal `json:"monthlyBudget"`
}

// BudgetRequest is the body of PUT /api/goals/:id/budget.
type BudgetRequest struct {
	MonthlyBudget decimal.Decimal `json:"monthlyBudget"`
}

// TransactionRequest is the body of POST /api/transactions. A zero GoalID
// attaches the transaction to the active goal, if there is one.
type TransactionRequest struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	GoalID      uint            `json:"goalId"`
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	Store     Store
	Importer  *parser.Importer
	Log       zerolog.Logger
	StaticDir string
	// Now returns the current time; tests pin it.
	Now func() time.Time
}

// NewApp builds a fiber app with every route registered.
func NewApp(h *Handler, maxUploadMB int) *fiber.App {
	if maxUploadMB <= 0 {
		maxUploadMB = 32
	}
	app := fiber.New(fiber.Config{
		AppName:               "smartspend",
		BodyLimit:             maxUploadMB << 20,
		DisableStartupMessage: true,
		ErrorHandler:          h.handleError,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	app.Use(h.logRequest)
	h.RegisterRoutes(app)
	return app
}

// RegisterRoutes sets up the HTTP routes.
func (h *Handler) RegisterRoutes(r fiber.Router) {
	r.Get("/api/health", h.HandleHealth)

	r.Post("/api/goals", h.HandleCreateGoal)
	r.Get("/api/goals/active", h.HandleActiveGoal)
	r.Put("/api/goals/:id/budget", h.HandleUpdateBudget)

	r.Post("/api/transactions", h.HandleAddTransaction)
	r.Get("/api/transactions", h.HandleListTransactions)
	r.Delete("/api/transactions/:id", h.HandleDeleteTransaction)

	r.Post("/api/import", h.HandleImport)

	r.Get("/api/dashboard", h.HandleDashboard)
	r.Get("/api/recommendations", h.HandleRecommendations)
	r.Get("/api/charts/categories", h.HandleCategoryChart)
	r.Get("/api/charts/daily", h.HandleDailyChart)
	r.Get("/api/export.csv", h.HandleExportCSV)

	if h.StaticDir != "" {
		r.Static("/", h.StaticDir)
	}
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": version,
		"engine":  "fiber",
	})
}

func (h *Handler) HandleCreateGoal(c *fiber.Ctx) error {
	var req GoalRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid goal body: %v", err))
	}
	deadline, err := time.Parse(time.DateOnly, strings.TrimSpace(req.Deadline))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "deadline must be YYYY-MM-DD")
	}

	id, err := h.Store.CreateGoal(c.UserContext(), models.Goal{
		SavingFor:     strings.TrimSpace(req.SavingFor),
		SavingAmount:  req.SavingAmount,
		Deadline:      deadline,
		MonthlyBudget: req.MonthlyBudget,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(Response{Success: true, Data: fiber.Map{"id": id}})
}

func (h *Handler) HandleActiveGoal(c *fiber.Ctx) error {
	goal, err := h.Store.ActiveGoal(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(Response{Success: true, Data: goal})
}

func (h *Handler) HandleUpdateBudget(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid goal id")
	}
	var req BudgetRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid budget body: %v", err))
	}
	if err := h.Store.UpdateMonthlyBudget(c.UserContext(), uint(id), req.MonthlyBudget); err != nil {
		return err
	}
	return c.JSON(Response{Success: true})
}

func (h *Handler) HandleAddTransaction(c *fiber.Ctx) error {
	var req TransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid transaction body: %v", err))
	}
	ctx := c.UserContext()

	goalID := req.GoalID
	if goalID == 0 {
		goal, err := h.Store.ActiveGoal(ctx)
		if err != nil && !errors.Is(err, models.ErrNoActiveGoal) {
			return err
		}
		if goal != nil {
			goalID = goal.ID
		}
	}

	txn, err := h.Store.AddTransaction(ctx, strings.TrimSpace(req.Date), strings.TrimSpace(req.Description),
		req.Amount, models.Direction(strings.TrimSpace(req.Type)), goalID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(Response{Success: true, Data: txn})
}

func (h *Handler) HandleListTransactions(c *fiber.Ctx) error {
	txns, err := h.Store.Transactions(c.UserContext())
	if err != nil {
		return err
	}
	if txns == nil {
		txns = []models.Transaction{}
	}
	return c.JSON(Response{Success: true, Data: txns})
}

func (h *Handler) HandleDeleteTransaction(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid transaction id")
	}
	if err := h.Store.DeleteTransaction(c.UserContext(), uint(id)); err != nil {
		return err
	}
	return c.JSON(Response{Success: true})
}

// HandleImport imports an uploaded statement PDF into a goal. Text already
// extracted by the client may be sent in "extractedText" instead, with pages
// separated by "---PAGE_BREAK---" lines.
func (h *Handler) HandleImport(c *fiber.Ctx) error {
	ctx := c.UserContext()

	goalID, err := h.importGoal(c)
	if err != nil {
		return err
	}

	batch := uuid.NewString()
	ctx = models.WithImportBatch(ctx, batch)

	var count int
	if text := c.FormValue("extractedText"); strings.TrimSpace(text) != "" {
		count, err = h.Importer.ImportText(ctx, parser.SplitPages(text), goalID)
	} else {
		count, err = h.importUpload(ctx, c, goalID)
	}
	if err != nil {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return fe
		}
		return fiber.NewError(fiber.StatusUnprocessableEntity, fmt.Sprintf("statement import failed: %v", err))
	}

	return c.JSON(ImportResponse{Success: true, Count: count, Batch: batch, GoalID: goalID})
}

// importGoal picks the goal_id form value, or the active goal.
func (h *Handler) importGoal(c *fiber.Ctx) (uint, error) {
	if raw := c.FormValue("goal_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return 0, fiber.NewError(fiber.StatusBadRequest, "invalid goal_id")
		}
		return uint(id), nil
	}
	goal, err := h.Store.ActiveGoal(c.UserContext())
	if err != nil {
		return 0, err
	}
	return goal.ID, nil
}

func (h *Handler) importUpload(ctx context.Context, c *fiber.Ctx, goalID uint) (int, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "No file uploaded. Use form field 'file'.")
	}
	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Only PDF files are supported.")
	}

	f, err := header.Open()
	if err != nil {
		return 0, fiber.NewError(fiber.StatusInternalServerError, "Failed to read uploaded file.")
	}
	defer f.Close()

	return h.Importer.ImportReader(ctx, f, header.Size, goalID)
}

// activeGoalData loads the active goal and its transactions.
func (h *Handler) activeGoalData(ctx context.Context) (*models.Goal, []models.Transaction, error) {
	goal, err := h.Store.ActiveGoal(ctx)
	if err != nil {
		return nil, nil, err
	}
	txns, err := h.Store.GoalTransactions(ctx, goal.ID)
	if err != nil {
		return nil, nil, err
	}
	return goal, txns, nil
}

func (h *Handler) HandleDashboard(c *fiber.Ctx) error {
	goal, txns, err := h.activeGoalData(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(Response{Success: true, Data: metrics.NewDashboard(*goal, txns, h.now())})
}

func (h *Handler) HandleRecommendations(c *fiber.Ctx) error {
	goal, txns, err := h.activeGoalData(c.UserContext())
	if err != nil {
		return err
	}
	dash := metrics.NewDashboard(*goal, txns, h.now())
	return c.JSON(Response{Success: true, Data: metrics.Recommendations(dash, txns)})
}

func (h *Handler) HandleCategoryChart(c *fiber.Ctx) error {
	_, txns, err := h.activeGoalData(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(Response{Success: true, Data: metrics.CategoryTotals(txns)})
}

func (h *Handler) HandleDailyChart(c *fiber.Ctx) error {
	_, txns, err := h.activeGoalData(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(Response{Success: true, Data: metrics.DailyTotals(txns)})
}

func (h *Handler) HandleExportCSV(c *fiber.Ctx) error {
	goal, txns, err := h.activeGoalData(c.UserContext())
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="transactions.csv"`)
	w := &writer.CSVWriter{IncludeHeader: c.Query("header") != "false"}
	return w.Write(c, goal, txns)
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// handleError maps errors to a JSON envelope and status code.
func (h *Handler) handleError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		status = fe.Code
	case errors.Is(err, models.ErrInvalidDirection),
		errors.Is(err, models.ErrNonPositiveAmount),
		errors.Is(err, models.ErrInvalidGoal):
		status = fiber.StatusBadRequest
	case errors.Is(err, models.ErrNoActiveGoal), errors.Is(err, models.ErrNotFound):
		status = fiber.StatusNotFound
	}

	if status >= fiber.StatusInternalServerError {
		h.Log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	return c.Status(status).JSON(Response{Success: false, Error: err.Error()})
}

func (h *Handler) logRequest(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	if err != nil {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
	}
	h.Log.Debug().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", status).
		Dur("elapsed", time.Since(start)).
		Msg("request")
	return err
}
