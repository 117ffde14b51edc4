package cli

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	urfave "github.com/urfave/cli/v2"

	"github.com/vitalkit/riskctl/pkg/ml"
)

const (
	serverShutdownWaitSeconds = 5
	serverTimeoutSeconds      = 30
	serverMaxHeaderBytes      = 20
	serverPortDefault         = 8080
)

var (
	//go:embed templates/*
	embedFS embed.FS

	portFlag = &urfave.IntFlag{
		Name:     "port",
		Usage:    "Port on which the server will listen",
		Value:    serverPortDefault,
		Required: false,
	}

	noBrowserFlag = &urfave.BoolFlag{
		Name:    "no-browser",
		Aliases: []string{"nb"},
		Usage:   "Do not open browser automatically",
	}

	serverCmd = &urfave.Command{
		Name:    "server",
		Aliases: []string{"serve"},
		Usage:   "Start the local health kiosk server",
		Action:  cmdStartServer,
		Flags: []urfave.Flag{
			portFlag,
			noBrowserFlag,
		},
	}

	// Result banner colors, indexed by label.
	labelColors = [ml.NumClasses]string{"green", "red", "orange", "purple"}
)

func cmdStartServer(c *urfave.Context) error {
	cfg := getConfig(c)

	model, err := ml.LoadModel(cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("loading model artifact (run train first?): %w", err)
	}
	slog.Info("model loaded", "id", model.ID, "path", cfg.ModelPath)

	port := c.Int(portFlag.Name)
	address := fmt.Sprintf("127.0.0.1:%d", port)

	mux := makeRouter(model)
	s := &http.Server{
		Addr:           address,
		Handler:        mux,
		ReadTimeout:    serverTimeoutSeconds * time.Second,
		WriteTimeout:   serverTimeoutSeconds * time.Second,
		MaxHeaderBytes: 1 << serverMaxHeaderBytes,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("error starting server", "error", err)
		}
	}()

	url := fmt.Sprintf("http://%s", address)
	slog.Info("server started", "address", url)

	if !c.Bool(noBrowserFlag.Name) {
		openBrowser(url)
	}

	<-done

	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownWaitSeconds*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("error shutting down server", "error", err)
	}
	return nil
}

func makeRouter(model *ml.Model) *http.ServeMux {
	tmpl := template.Must(template.New("").ParseFS(embedFS, "templates/*.html"))

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", homeViewHandler(tmpl))
	mux.HandleFunc("POST /predict", predictViewHandler(tmpl, model))
	mux.HandleFunc("POST /api/predict", predictAPIHandler(model))
	mux.HandleFunc("GET /api/health", healthAPIHandler(model))

	return mux
}

// homeView is the data rendered into the kiosk page.
type homeView struct {
	Result      string
	Color       string
	Explanation string
	Error       string
}

func homeViewHandler(tmpl *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		renderHome(w, tmpl, &homeView{})
	}
}

func predictViewHandler(tmpl *template.Template, model *ml.Model) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vitals, age, err := parseVitalsForm(r)
		if err != nil {
			renderHome(w, tmpl, &homeView{Error: err.Error()})
			return
		}

		pred, err := model.Predict(ml.AdjustForAge(vitals, age))
		if err != nil {
			renderHome(w, tmpl, &homeView{Error: err.Error()})
			return
		}

		renderHome(w, tmpl, &homeView{
			Result:      pred.Class,
			Color:       labelColors[pred.Label],
			Explanation: fmt.Sprintf("Confidence: %.1f%%. Flagged due to %s.", pred.Confidence*100, pred.Explanation),
		})
	}
}

func renderHome(w http.ResponseWriter, tmpl *template.Template, view *homeView) {
	if err := tmpl.ExecuteTemplate(w, "home.html", view); err != nil {
		slog.Error("error rendering home view", "error", err)
		http.Error(w, "error rendering page", http.StatusInternalServerError)
	}
}

func parseVitalsForm(r *http.Request) (ml.Vitals, float64, error) {
	var vitals ml.Vitals
	fields := map[string]*float64{
		"HeartRate":     &vitals.HeartRate,
		"SpO2":          &vitals.SpO2,
		"BloodPressure": &vitals.BloodPressure,
		"Temperature":   &vitals.Temperature,
	}
	for name, target := range fields {
		v, err := strconv.ParseFloat(r.FormValue(name), 64)
		if err != nil {
			return vitals, 0, fmt.Errorf("invalid %s value", name)
		}
		*target = v
	}

	// Age is optional and only shifts the heart-rate baseline.
	age, _ := strconv.ParseFloat(r.FormValue("Age"), 64)
	return vitals, age, nil
}

// predictAPIRequest is the JSON inference request body.
type predictAPIRequest struct {
	Age    float64   `json:"age,omitempty"`
	Vitals ml.Vitals `json:"vitals"`
}

func predictAPIHandler(model *ml.Model) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req predictAPIRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		pred, err := model.Predict(ml.AdjustForAge(req.Vitals, req.Age))
		if err != nil {
			if errors.Is(err, ml.ErrInvalidFeature) {
				writeJSONError(w, http.StatusBadRequest, err.Error())
				return
			}
			slog.Error("prediction failed", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "prediction failed")
			return
		}

		writeJSON(w, http.StatusOK, &PredictResult{
			ModelID:    model.ID,
			Input:      req.Vitals,
			Age:        req.Age,
			Prediction: pred,
		})
	}
}

func healthAPIHandler(model *ml.Model) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":   "ok",
			"model_id": model.ID,
			"version":  version,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("error encoding response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func openBrowser(url string) {
	var cmd string
	args := make([]string, 0, 1)

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
	case "linux":
		cmd = "xdg-open"
	default: // windows
		cmd = "rundll32"
		args = []string{"url.dll,FileProtocolHandler"}
	}

	args = append(args, url)
	if err := exec.Command(cmd, args...).Start(); err != nil {
		slog.Error("failed to open browser", "error", err)
	}
}
