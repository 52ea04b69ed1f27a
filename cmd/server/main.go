// Package main provides the Bel Energy engine API server. It wires the
// assignment and BelCash services to an HTTP surface with a JSON envelope;
// all business logic lives in the internal services.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"bel-energy-engine/internal/config"
	"bel-energy-engine/internal/models"
	"bel-energy-engine/internal/services/assignment"
	"bel-energy-engine/internal/services/belcash"
	"bel-energy-engine/internal/services/database"
	s3service "bel-energy-engine/internal/services/s3"
	sesservice "bel-energy-engine/internal/services/ses"
	"bel-energy-engine/internal/utils"
)

// Server holds all dependencies, constructed once at process start and passed
// by reference to the request handlers.
type Server struct {
	db         *database.DB
	assignment *assignment.Service
	belcash    *belcash.Service
	config     *config.Config
}

// Response represents a standard API response.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := utils.InitLogger(cfg.LogLevel, cfg.Stage); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer utils.Sync()

	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}
	defer db.Close()

	allyRepo := database.NewAllyRepository(db)
	userRepo := database.NewUserRepository(db)
	projectRepo := database.NewProjectRepository(db)

	ctx := context.Background()
	var opts []assignment.Option
	opts = append(opts, assignment.WithThreshold(cfg.AssignmentThreshold))

	if cfg.SESSenderEmail != "" {
		notifier, err := sesservice.NewService(ctx, cfg)
		if err != nil {
			utils.Logger.Warn("SES notifier disabled", zap.Error(err))
		} else {
			opts = append(opts, assignment.WithNotifier(notifier))
		}
	}

	if cfg.S3AuditBucket != "" {
		archiver, err := s3service.NewService(ctx, cfg)
		if err != nil {
			utils.Logger.Warn("S3 audit archiver disabled", zap.Error(err))
		} else {
			opts = append(opts, assignment.WithAuditArchiver(archiver))
		}
	}

	server := &Server{
		db:         db,
		assignment: assignment.NewService(allyRepo, projectRepo, opts...),
		belcash:    belcash.NewService(belcash.NewEngine(), userRepo),
		config:     cfg,
	}

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", server.healthHandler)
	mux.HandleFunc("/api/health", server.healthHandler)

	// Allies
	mux.HandleFunc("/api/aliados/available", server.availableAlliesHandler)
	mux.HandleFunc("/api/aliados/auto-assign", server.autoAssignHandler)
	mux.HandleFunc("/api/aliados/assign", server.assignHandler)
	mux.HandleFunc("/api/aliados/complete", server.completeProjectHandler)
	mux.HandleFunc("/api/aliados/academy-level", server.academyLevelHandler)

	// BelCash
	mux.HandleFunc("/api/belcash/score/", server.belScoreHandler)
	mux.HandleFunc("/api/belcash/simulate", server.simulateHandler)
	mux.HandleFunc("/api/belcash/options/", server.optionsHandler)
	mux.HandleFunc("/api/belcash/apply", server.applyHandler)
	mux.HandleFunc("/api/belcash/matrix", server.matrixHandler)
	mux.HandleFunc("/api/belcash/update-score", server.updateScoreHandler)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	addr := fmt.Sprintf("0.0.0.0:%s", cfg.Port)
	utils.Logger.Info("Bel Energy engine API server starting",
		zap.String("addr", addr),
		zap.String("stage", cfg.Stage),
	)

	if err := http.ListenAndServe(addr, c.Handler(mux)); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	dbStatus := "disconnected"
	if err := s.db.HealthCheck(r.Context()); err == nil {
		dbStatus = "connected"
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Bel Energy engine API is running",
		Data: map[string]interface{}{
			"status":    "healthy",
			"database":  dbStatus,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   "1.0.0",
		},
	})
}

// GET /api/aliados/available?specialization=RESIDENTIAL&area=Caracas&limit=5
func (s *Server) availableAlliesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	specialization := models.Specialization(r.URL.Query().Get("specialization"))
	area := r.URL.Query().Get("area")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	allies, err := s.assignment.FindAvailable(r.Context(), specialization, area, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: allies})
}

// POST /api/aliados/auto-assign
func (s *Server) autoAssignHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}
	if req.ProjectID == "" {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "project_id is required"})
		return
	}

	result, err := s.assignment.AutoAssign(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	// No-match is a normal outcome, reported with an explicit payload.
	writeJSON(w, http.StatusOK, Response{
		Success: result.Success,
		Message: result.Message,
		Data:    result,
	})
}

// POST /api/aliados/assign, the manual assignment fallback.
func (s *Server) assignHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ProjectID string          `json:"project_id"`
		AllyID    string          `json:"ally_id"`
		Priority  models.Priority `json:"priority"`
		Notes     string          `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}
	if req.ProjectID == "" || req.AllyID == "" {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "project_id and ally_id are required"})
		return
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}

	result, err := s.assignment.Assign(r.Context(), req.ProjectID, req.AllyID, req.Priority, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Message: result.Message, Data: result})
}

// POST /api/aliados/complete
func (s *Server) completeProjectHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ProjectID string   `json:"project_id"`
		AllyID    string   `json:"ally_id"`
		Rating    *float64 `json:"rating,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}
	if req.ProjectID == "" || req.AllyID == "" {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "project_id and ally_id are required"})
		return
	}

	commission, err := s.assignment.CompleteProject(r.Context(), req.ProjectID, req.AllyID, req.Rating)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: commission})
}

// POST /api/aliados/academy-level (admin)
func (s *Server) academyLevelHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		AllyID string              `json:"ally_id"`
		Level  models.AcademyLevel `json:"level"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}
	if req.AllyID == "" || req.Level == "" {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "ally_id and level are required"})
		return
	}

	if err := s.assignment.SetAcademyLevel(r.Context(), req.AllyID, req.Level); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Academy level updated successfully"})
}

// GET /api/belcash/score/{userId}
func (s *Server) belScoreHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := strings.TrimPrefix(r.URL.Path, "/api/belcash/score/")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "user ID is required"})
		return
	}

	result, err := s.belcash.CalculateBelScore(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: result})
}

// POST /api/belcash/simulate
func (s *Server) simulateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Principal float64 `json:"principal"`
		UserID    string  `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "user_id is required"})
		return
	}

	simulation, err := s.belcash.SimulateFinancing(r.Context(), req.Principal, req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: simulation})
}

// GET /api/belcash/options/{userId}?amount=1000
func (s *Server) optionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := strings.TrimPrefix(r.URL.Path, "/api/belcash/options/")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "user ID is required"})
		return
	}

	principal := 1000.0 // default simulation amount
	if amount := r.URL.Query().Get("amount"); amount != "" {
		parsed, err := strconv.ParseFloat(amount, 64)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid amount"})
			return
		}
		principal = parsed
	}

	simulation, err := s.belcash.SimulateFinancing(r.Context(), principal, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"bel_score":          simulation.BelScore,
			"available_options":  simulation.AvailableOptions,
			"recommended_option": simulation.RecommendedOption,
		},
	})
}

// POST /api/belcash/apply
func (s *Server) applyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.FinancingApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "user_id is required"})
		return
	}

	application, err := s.belcash.ApplyForFinancing(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Financing application created successfully",
		Data:    application,
	})
}

// GET /api/belcash/matrix
func (s *Server) matrixHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: belcash.FinancingMatrix()})
}

// POST /api/belcash/update-score (admin)
func (s *Server) updateScoreHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		UserID string `json:"user_id"`
		Score  *int   `json:"score"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}
	if req.UserID == "" || req.Score == nil || req.Reason == "" {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "user_id, score and reason are required"})
		return
	}

	if err := s.belcash.UpdateScore(r.Context(), req.UserID, *req.Score, req.Reason); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Message: "BelScore updated successfully"})
}

// writeError maps service errors to HTTP status codes: not-found conditions
// and invalid input map to 4xx, concurrency conflicts to 409, everything else
// to 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrUserNotFound),
		errors.Is(err, models.ErrAllyNotFound),
		errors.Is(err, models.ErrProjectNotFound):
		writeJSON(w, http.StatusNotFound, Response{Success: false, Error: err.Error()})

	case errors.Is(err, models.ErrInvalidPrincipal),
		errors.Is(err, models.ErrInvalidGrade),
		errors.Is(err, models.ErrEmptySpecialization),
		errors.Is(err, models.ErrInvalidSpecialization),
		errors.Is(err, models.ErrEmptyServiceArea),
		errors.Is(err, models.ErrInvalidPriority),
		errors.Is(err, models.ErrInvalidAcademyLevel),
		errors.Is(err, models.ErrInvalidInstallments),
		errors.Is(err, models.ErrInvalidScore),
		errors.Is(err, models.ErrOptionUnavailable),
		errors.Is(err, models.ErrProjectNotAssigned):
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: err.Error()})

	case errors.Is(err, models.ErrAllyUnavailable),
		errors.Is(err, models.ErrAssignmentConflict):
		writeJSON(w, http.StatusConflict, Response{Success: false, Error: err.Error()})

	default:
		utils.GetLogger().Error("Internal error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
