package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/smartspend/internal/extractor/pdffixture"
	"github.com/insightdelivered/smartspend/internal/parser"
	"github.com/insightdelivered/smartspend/internal/store"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	h := &Handler{
		Store:    s,
		Importer: parser.NewImporter(s, zerolog.Nop()),
		Log:      zerolog.Nop(),
		Now:      func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
	return NewApp(h, 8)
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return decode(t, app, req)
}

func decode(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	var result map[string]interface{}
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("failed to decode response %q: %v", raw, err)
	}
	return resp, result
}

func createGoal(t *testing.T, app *fiber.App) {
	t.Helper()
	resp, _ := doJSON(t, app, "POST", "/api/goals", map[string]interface{}{
		"savingFor":     "Laptop",
		"savingAmount":  "10000",
		"deadline":      "2024-03-11",
		"monthlyBudget": 3000,
	})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("create goal: expected 201, got %d", resp.StatusCode)
	}
}

func TestHealthEndpoint(t *testing.T) {
	app := setupTestApp(t)

	resp, result := doJSON(t, app, "GET", "/api/health", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if result["status"] != "ok" {
		t.Errorf("expected status=ok, got %v", result["status"])
	}
	if result["engine"] != "fiber" {
		t.Errorf("expected engine=fiber, got %v", result["engine"])
	}
}

func TestGoalLifecycle(t *testing.T) {
	app := setupTestApp(t)

	resp, _ := doJSON(t, app, "GET", "/api/goals/active", nil)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("no goal: expected 404, got %d", resp.StatusCode)
	}

	createGoal(t, app)

	resp, result := doJSON(t, app, "GET", "/api/goals/active", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	goal := result["data"].(map[string]interface{})
	if goal["savingFor"] != "Laptop" {
		t.Errorf("savingFor: got %v, want Laptop", goal["savingFor"])
	}

	id := int(goal["id"].(float64))
	resp, _ = doJSON(t, app, "PUT", "/api/goals/"+strconv.Itoa(id)+"/budget", map[string]interface{}{"monthlyBudget": "2500"})
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("update budget: expected 200, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, "PUT", "/api/goals/999/budget", map[string]interface{}{"monthlyBudget": "2500"})
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("unknown goal: expected 404, got %d", resp.StatusCode)
	}
}

func TestCreateGoalValidation(t *testing.T) {
	app := setupTestApp(t)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"bad deadline", map[string]interface{}{"savingFor": "Laptop", "savingAmount": "100", "deadline": "11/03/2024"}},
		{"zero amount", map[string]interface{}{"savingFor": "Laptop", "savingAmount": "0", "deadline": "2024-03-11"}},
		{"empty name", map[string]interface{}{"savingFor": "", "savingAmount": "10", "deadline": "2024-03-11"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, result := doJSON(t, app, "POST", "/api/goals", tt.body)
			if resp.StatusCode != fiber.StatusBadRequest {
				t.Errorf("expected 400, got %d", resp.StatusCode)
			}
			if result["success"] != false {
				t.Errorf("expected success=false, got %v", result["success"])
			}
		})
	}
}

func TestTransactionsEndpoints(t *testing.T) {
	app := setupTestApp(t)
	createGoal(t, app)

	resp, result := doJSON(t, app, "POST", "/api/transactions", map[string]interface{}{
		"date": "2024-03-01", "description": "Buy Goods NAIVAS", "amount": "800", "type": "expense",
	})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	txn := result["data"].(map[string]interface{})
	if txn["category"] != "Groceries" {
		t.Errorf("category: got %v, want Groceries", txn["category"])
	}
	if txn["goalId"] == nil {
		t.Error("expected transaction attached to the active goal")
	}

	resp, _ = doJSON(t, app, "POST", "/api/transactions", map[string]interface{}{
		"date": "2024-03-01", "description": "x", "amount": "10", "type": "transfer",
	})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("invalid type: expected 400, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, "POST", "/api/transactions", map[string]interface{}{
		"date": "2024-03-01", "description": "x", "amount": "0", "type": "income",
	})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("zero amount: expected 400, got %d", resp.StatusCode)
	}

	_, result = doJSON(t, app, "GET", "/api/transactions", nil)
	list := result["data"].([]interface{})
	if len(list) != 1 {
		t.Fatalf("transactions: got %d, want 1", len(list))
	}

	id := int(list[0].(map[string]interface{})["id"].(float64))
	resp, _ = doJSON(t, app, "DELETE", "/api/transactions/"+strconv.Itoa(id), nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("delete: expected 200, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, app, "DELETE", "/api/transactions/"+strconv.Itoa(id), nil)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("second delete: expected 404, got %d", resp.StatusCode)
	}
}

func multipartRequest(t *testing.T, fields map[string]string, filename string, file []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(file)
	}
	mw.Close()

	req := httptest.NewRequest("POST", "/api/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

const statementText = `MPESA FULL STATEMENT
Receipt No Completion Time Details Transaction Status Paid In Withdrawn Balance
QA11BC22DE 2024-03-01 09:15:00 Funds received from
JOHN DOE Completed 5,000.00 0.00 5,000.00
QA33BC44DE 2024-03-01 12:00:00 Buy Goods NAIVAS Completed 0.00 800.00 4,200.00
---PAGE_BREAK---
Page 2 of 2
QA55BC66DE 2024-03-02 08:00:00 Pay Bill to KPLC Completed 0.00 400.00 3,800.00`

func TestImportExtractedText(t *testing.T) {
	app := setupTestApp(t)
	createGoal(t, app)

	resp, result := decode(t, app, multipartRequest(t, map[string]string{"extractedText": statementText}, "", nil))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %v", resp.StatusCode, result)
	}
	if result["count"] != float64(3) {
		t.Errorf("count: got %v, want 3", result["count"])
	}
	if result["batch"] == "" {
		t.Error("expected a batch id")
	}

	// No dedup: a second import stores everything again.
	_, result = decode(t, app, multipartRequest(t, map[string]string{"extractedText": statementText}, "", nil))
	if result["count"] != float64(3) {
		t.Errorf("second count: got %v, want 3", result["count"])
	}
	_, result = doJSON(t, app, "GET", "/api/transactions", nil)
	if n := len(result["data"].([]interface{})); n != 6 {
		t.Errorf("transactions after two imports: got %d, want 6", n)
	}

	_, result = doJSON(t, app, "GET", "/api/dashboard", nil)
	dash := result["data"].(map[string]interface{})
	if dash["currentSavings"] != "7600" {
		t.Errorf("currentSavings: got %v, want 7600", dash["currentSavings"])
	}
	if dash["daysRemaining"] != float64(10) {
		t.Errorf("daysRemaining: got %v, want 10", dash["daysRemaining"])
	}

	_, result = doJSON(t, app, "GET", "/api/charts/categories", nil)
	points := result["data"].([]interface{})
	if len(points) != 2 {
		t.Fatalf("category points: got %d, want 2", len(points))
	}
	top := points[0].(map[string]interface{})
	if top["label"] != "Groceries" || top["total"] != "1600" {
		t.Errorf("top category: got %v %v, want Groceries 1600", top["label"], top["total"])
	}

	_, result = doJSON(t, app, "GET", "/api/charts/daily", nil)
	if n := len(result["data"].([]interface{})); n != 2 {
		t.Errorf("daily points: got %d, want 2", n)
	}

	_, result = doJSON(t, app, "GET", "/api/recommendations", nil)
	recs := result["data"].([]interface{})
	if len(recs) == 0 || !strings.Contains(recs[0].(string), "per day") {
		t.Errorf("recommendations: got %v", recs)
	}
}

func TestImportPDFUpload(t *testing.T) {
	app := setupTestApp(t)
	createGoal(t, app)

	pdf := pdffixture.Build([][]string{{
		"MPESA FULL STATEMENT",
		"QA11BC22DE 2024-03-01 09:15:00 Buy Goods NAIVAS Completed 0.00 800.00 4,200.00",
	}})

	resp, result := decode(t, app, multipartRequest(t, nil, "statement.pdf", pdf))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %v", resp.StatusCode, result)
	}
	if result["count"] != float64(1) {
		t.Errorf("count: got %v, want 1", result["count"])
	}
}

func TestImportErrors(t *testing.T) {
	app := setupTestApp(t)

	resp, _ := decode(t, app, multipartRequest(t, map[string]string{"extractedText": statementText}, "", nil))
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("no active goal: expected 404, got %d", resp.StatusCode)
	}

	createGoal(t, app)

	resp, _ = decode(t, app, multipartRequest(t, nil, "", nil))
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("missing file: expected 400, got %d", resp.StatusCode)
	}

	resp, _ = decode(t, app, multipartRequest(t, nil, "statement.txt", []byte("hello")))
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("non-pdf: expected 400, got %d", resp.StatusCode)
	}

	resp, _ = decode(t, app, multipartRequest(t, nil, "statement.pdf", []byte("not really a pdf")))
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Errorf("corrupt pdf: expected 422, got %d", resp.StatusCode)
	}

	resp, _ = decode(t, app, multipartRequest(t, map[string]string{"goal_id": "abc"}, "statement.pdf", []byte("x")))
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("bad goal_id: expected 400, got %d", resp.StatusCode)
	}
}

func TestExportCSV(t *testing.T) {
	app := setupTestApp(t)
	createGoal(t, app)
	doJSON(t, app, "POST", "/api/transactions", map[string]interface{}{
		"date": "2024-03-01", "description": "UBER", "amount": "450", "type": "expense",
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/export.csv", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "2024-03-01,UBER,Transport,expense,450.00") {
		t.Errorf("unexpected CSV:\n%s", body)
	}
	if !strings.Contains(string(body), "# Saving For,Laptop") {
		t.Errorf("expected goal metadata in CSV:\n%s", body)
	}
}
