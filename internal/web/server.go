package web

import (
	"embed"
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/gorilla/mux"

	"github.com/openvault-labs/vsm/internal/logger"
	"github.com/openvault-labs/vsm/internal/service"
	"github.com/openvault-labs/vsm/internal/simulations"
	"github.com/openvault-labs/vsm/internal/state"
	"github.com/openvault-labs/vsm/internal/types"
	"github.com/openvault-labs/vsm/internal/utils"
)

var webLogger = logger.GetForComponent("web_server")

//go:embed static/*
var staticFiles embed.FS

//go:embed static/index.html
var dashboardHTML []byte

// WebServer handles HTTP requests for vault data and operations
type WebServer struct {
	router  *mux.Router
	port    string
	service *service.Service
	started time.Time
}

// amountRequest is the JSON body shared by the four mutating endpoints.
// Amount is a decimal string in base units; Owner is only read by
// withdraw/redeem and defaults to the caller.
type amountRequest struct {
	Caller   string `json:"caller"`
	Receiver string `json:"receiver"`
	Owner    string `json:"owner,omitempty"`
	Amount   string `json:"amount"`
}

// NewWebServer creates a new web server instance
func NewWebServer(port string, svc *service.Service) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router:  mux.NewRouter(),
		port:    port,
		service: svc,
		started: time.Now(),
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Static files
	staticHandler := http.FileServer(http.FS(staticFiles))
	ws.router.PathPrefix("/static/").Handler(http.StripPrefix("/", staticHandler))

	// Dashboard routes
	ws.router.HandleFunc("/", ws.handleDashboard).Methods("GET")
	ws.router.HandleFunc("/dashboard", ws.handleDashboard).Methods("GET")

	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/vaults", ws.handleListVaults).Methods("GET")
	api.HandleFunc("/vaults/{id}", ws.handleGetVault).Methods("GET")
	api.HandleFunc("/vaults/{id}/convert", ws.handleConvert).Methods("GET")
	api.HandleFunc("/vaults/{id}/preview", ws.handlePreview).Methods("GET")
	api.HandleFunc("/vaults/{id}/deposit", ws.handleDeposit).Methods("POST")
	api.HandleFunc("/vaults/{id}/mint", ws.handleMint).Methods("POST")
	api.HandleFunc("/vaults/{id}/withdraw", ws.handleWithdraw).Methods("POST")
	api.HandleFunc("/vaults/{id}/redeem", ws.handleRedeem).Methods("POST")
	api.HandleFunc("/vaults/{id}/operations", ws.handleGetOperations).Methods("GET")
	api.HandleFunc("/vaults/{id}/snapshots", ws.handleGetSnapshots).Methods("GET")
	api.HandleFunc("/vaults/{id}/summary", ws.handleGetVaultSummary).Methods("GET")
	api.HandleFunc("/vault-parameters", ws.handleGetVaultParameters).Methods("GET")
	api.HandleFunc("/simulations/inflation", ws.handleInflationSimulation).Methods("POST")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	hasErrors := false

	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
		hasErrors = true
	}

	vaults := ws.service.ListVaults()

	overallStatus := "OK"
	if hasErrors {
		overallStatus = "DEGRADED"
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":            runtime.Version(),
			"goroutines_count":   runtime.NumGoroutine(),
			"total_alloc_bytes":  memStats.TotalAlloc,
			"heap_objects_count": memStats.HeapObjects,
			"alloc_bytes":        memStats.Alloc,
			"sys_bytes":          memStats.Sys,
			"gc_cycles":          memStats.NumGC,
			"uptime_seconds":     int64(time.Since(ws.started).Seconds()),
		},
		"component": map[string]interface{}{
			"name":    "vsm-vault-share-manager",
			"version": "1.0.0",
		},
		"vsm_status": map[string]interface{}{
			"database_healthy": dbHealthy,
			"vault_count":      len(vaults),
		},
	}

	statusCode := http.StatusOK
	if hasErrors {
		statusCode = http.StatusServiceUnavailable
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleDashboard serves the main dashboard HTML
func (ws *WebServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	w.Write(dashboardHTML)
}

// handleListVaults returns the state of every registered vault
func (ws *WebServer) handleListVaults(w http.ResponseWriter, r *http.Request) {
	vaults := ws.service.ListVaults()

	response := map[string]interface{}{
		"vaults": vaults,
		"count":  len(vaults),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetVault returns the state of one vault
func (ws *WebServer) handleGetVault(w http.ResponseWriter, r *http.Request) {
	v, ok := ws.vaultFromRequest(w, r)
	if !ok {
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, v.Info())
}

// handleConvert answers conversion queries:
// GET /api/vaults/{id}/convert?direction=ASSETS_TO_SHARES&rounding=DOWN&amount=1000
func (ws *WebServer) handleConvert(w http.ResponseWriter, r *http.Request) {
	v, ok := ws.vaultFromRequest(w, r)
	if !ok {
		return
	}

	amount, ok := ws.amountFromQuery(w, r)
	if !ok {
		return
	}

	req := types.ConversionRequest{
		AmountIn:  amount,
		Direction: types.Direction(r.URL.Query().Get("direction")),
		Rounding:  types.Rounding(r.URL.Query().Get("rounding")),
	}

	result, err := v.Convert(req)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	response := map[string]interface{}{
		"vault_id":   v.ID(),
		"direction":  req.Direction,
		"rounding":   req.Rounding,
		"amount_in":  amount.String(),
		"amount_out": result.String(),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handlePreview answers preview queries:
// GET /api/vaults/{id}/preview?op=deposit&amount=1000
func (ws *WebServer) handlePreview(w http.ResponseWriter, r *http.Request) {
	v, ok := ws.vaultFromRequest(w, r)
	if !ok {
		return
	}

	amount, ok := ws.amountFromQuery(w, r)
	if !ok {
		return
	}

	op := r.URL.Query().Get("op")
	var result sdkmath.Int
	var err error
	switch op {
	case "deposit":
		result, err = v.PreviewDeposit(amount)
	case "mint":
		result, err = v.PreviewMint(amount)
	case "withdraw":
		result, err = v.PreviewWithdraw(amount)
	case "redeem":
		result, err = v.PreviewRedeem(amount)
	default:
		ws.writeErrorResponse(w, http.StatusBadRequest, "op must be one of deposit, mint, withdraw, redeem")
		return
	}
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	response := map[string]interface{}{
		"vault_id":   v.ID(),
		"op":         op,
		"amount_in":  amount.String(),
		"amount_out": result.String(),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleDeposit executes a deposit
func (ws *WebServer) handleDeposit(w http.ResponseWriter, r *http.Request) {
	ws.handleOperation(w, r, func(vaultID uint64, req amountRequest, amount sdkmath.Int) (*types.OperationReceipt, error) {
		return ws.service.Deposit(vaultID, req.Caller, req.Receiver, amount)
	})
}

// handleMint executes a mint
func (ws *WebServer) handleMint(w http.ResponseWriter, r *http.Request) {
	ws.handleOperation(w, r, func(vaultID uint64, req amountRequest, amount sdkmath.Int) (*types.OperationReceipt, error) {
		return ws.service.Mint(vaultID, req.Caller, req.Receiver, amount)
	})
}

// handleWithdraw executes a withdrawal
func (ws *WebServer) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	ws.handleOperation(w, r, func(vaultID uint64, req amountRequest, amount sdkmath.Int) (*types.OperationReceipt, error) {
		return ws.service.Withdraw(vaultID, req.Caller, req.Receiver, req.Owner, amount)
	})
}

// handleRedeem executes a redemption
func (ws *WebServer) handleRedeem(w http.ResponseWriter, r *http.Request) {
	ws.handleOperation(w, r, func(vaultID uint64, req amountRequest, amount sdkmath.Int) (*types.OperationReceipt, error) {
		return ws.service.Redeem(vaultID, req.Caller, req.Receiver, req.Owner, amount)
	})
}

// handleOperation decodes the shared request body and dispatches to one of
// the four mutating operations. Failed operations still return their receipt
// so callers can see the recorded error.
func (ws *WebServer) handleOperation(w http.ResponseWriter, r *http.Request, run func(uint64, amountRequest, sdkmath.Int) (*types.OperationReceipt, error)) {
	vaultID, ok := ws.vaultIDFromRequest(w, r)
	if !ok {
		return
	}

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Caller == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "caller is required")
		return
	}
	if req.Receiver == "" {
		req.Receiver = req.Caller
	}
	if req.Owner == "" {
		req.Owner = req.Caller
	}

	amount, err := utils.ParseAmount(req.Amount)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	receipt, err := run(vaultID, req, amount)
	if receipt == nil {
		ws.writeErrorResponse(w, http.StatusNotFound, err.Error())
		return
	}
	statusCode := http.StatusOK
	if err != nil {
		statusCode = http.StatusUnprocessableEntity
	}

	ws.writeJSONResponse(w, statusCode, receipt)
}

// handleGetOperations returns paginated operation receipts for one vault
func (ws *WebServer) handleGetOperations(w http.ResponseWriter, r *http.Request) {
	vaultID, ok := ws.vaultIDFromRequest(w, r)
	if !ok {
		return
	}

	limit := ws.limitFromQuery(r, 20)

	operations, err := state.GetRecentOperations(vaultID, limit)
	if err != nil {
		webLogger.Error().Err(err).Uint64("vaultId", vaultID).Msg("Failed to get recent operations")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve operations")
		return
	}

	response := map[string]interface{}{
		"operations": operations,
		"count":      len(operations),
		"limit":      limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetSnapshots returns paginated vault snapshots
func (ws *WebServer) handleGetSnapshots(w http.ResponseWriter, r *http.Request) {
	vaultID, ok := ws.vaultIDFromRequest(w, r)
	if !ok {
		return
	}

	limit := ws.limitFromQuery(r, 20)

	snapshots, err := state.GetRecentSnapshots(vaultID, limit)
	if err != nil {
		webLogger.Error().Err(err).Uint64("vaultId", vaultID).Msg("Failed to get recent snapshots")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve snapshots")
		return
	}

	response := map[string]interface{}{
		"snapshots": snapshots,
		"count":     len(snapshots),
		"limit":     limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetVaultSummary returns aggregated receipt statistics for one vault
func (ws *WebServer) handleGetVaultSummary(w http.ResponseWriter, r *http.Request) {
	vaultID, ok := ws.vaultIDFromRequest(w, r)
	if !ok {
		return
	}

	summary, err := state.GetVaultSummary(vaultID)
	if err != nil {
		webLogger.Error().Err(err).Uint64("vaultId", vaultID).Msg("Failed to get vault summary")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve vault summary")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, summary)
}

// handleGetVaultParameters returns the active vault parameters
func (ws *WebServer) handleGetVaultParameters(w http.ResponseWriter, r *http.Request) {
	params, err := state.LoadActiveVaultParameters(service.DEFAULT_VAULT_CONFIG_NAME)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get vault parameters")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve vault parameters")
		return
	}

	response := map[string]interface{}{
		"parameters": params,
		"timestamp":  time.Now().UTC(),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleInflationSimulation runs a first-depositor attack scenario against a
// scratch vault and returns the outcome
func (ws *WebServer) handleInflationSimulation(w http.ResponseWriter, r *http.Request) {
	var scenario simulations.InflationScenario
	if err := json.NewDecoder(r.Body).Decode(&scenario); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid scenario body")
		return
	}

	result, err := simulations.RunInflationAttack(scenario)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, result)
}

// vaultIDFromRequest parses the {id} path variable
func (ws *WebServer) vaultIDFromRequest(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid vault ID")
		return 0, false
	}
	return id, true
}

// vaultFromRequest resolves the {id} path variable to a registered vault
func (ws *WebServer) vaultFromRequest(w http.ResponseWriter, r *http.Request) (vaultHandle, bool) {
	id, ok := ws.vaultIDFromRequest(w, r)
	if !ok {
		return nil, false
	}
	v, err := ws.service.GetVault(id)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Vault not found")
		return nil, false
	}
	return v, true
}

// amountFromQuery parses the amount query parameter
func (ws *WebServer) amountFromQuery(w http.ResponseWriter, r *http.Request) (sdkmath.Int, bool) {
	amount, err := utils.ParseAmount(r.URL.Query().Get("amount"))
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid amount")
		return sdkmath.Int{}, false
	}
	return amount, true
}

// limitFromQuery parses a bounded limit query parameter
func (ws *WebServer) limitFromQuery(r *http.Request, fallback int) int {
	limit := fallback
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}
	return limit
}

// vaultHandle is the slice of vault behavior the read-only handlers need.
type vaultHandle interface {
	ID() uint64
	Info() types.VaultInfo
	Convert(req types.ConversionRequest) (sdkmath.Int, error)
	PreviewDeposit(assets sdkmath.Int) (sdkmath.Int, error)
	PreviewMint(shares sdkmath.Int) (sdkmath.Int, error)
	PreviewWithdraw(assets sdkmath.Int) (sdkmath.Int, error)
	PreviewRedeem(shares sdkmath.Int) (sdkmath.Int, error)
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
