package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MihisaraJayasinghe/vehicleParkSystem/internal/logging"
	"github.com/MihisaraJayasinghe/vehicleParkSystem/internal/parking"
	"github.com/MihisaraJayasinghe/vehicleParkSystem/internal/recognition"
)

// Deps are the services the HTTP API is built over. Recognizer may be nil,
// in which case /api/recognize answers 503.
type Deps struct {
	Slots       SlotService
	AutoPark    parking.RecognitionHandler
	Employees   parking.EmployeeDirectory
	Recognizer  recognition.Recognizer
	Limiters    *ClientLimiters
	PoolSize    int
	ServiceName string
}

type Server struct {
	httpServer *http.Server
}

func NewRouter(deps Deps) http.Handler {
	handler := NewHandler(deps)
	if deps.Limiters == nil {
		deps.Limiters = NewClientLimiters(2, 4)
	}

	r := chi.NewRouter()

	r.Use(RecoveryMiddleware)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(TracingMiddleware(deps.ServiceName))
	r.Use(CORSMiddleware)

	r.Get("/health", handler.HealthCheck)
	r.Method(http.MethodGet, "/metrics", NewMetricsHandler(deps.Slots))

	r.Route("/api", func(r chi.Router) {
		r.Route("/slots", func(r chi.Router) {
			r.Get("/", handler.ListSlots)
			r.Post("/init", handler.InitPool)
			r.Post("/book", handler.BookSlot)
			r.Post("/park", handler.ParkSlot)
			r.Post("/clear", handler.ClearSlot)
			r.Get("/find/{plate}", handler.FindByPlate)
			r.Get("/parked-employees", handler.ParkedEmployees)
		})

		r.Post("/auto-park", handler.AutoPark)
		r.With(RateLimitMiddleware(deps.Limiters)).Post("/recognize", handler.Recognize)

		r.Route("/employees", func(r chi.Router) {
			r.Get("/", handler.ListEmployees)
			r.Post("/", handler.AddEmployee)
			r.Delete("/{plate}", handler.RemoveEmployee)
		})
	})

	return r
}

func NewServer(port string, deps Deps) *Server {
	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      NewRouter(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{httpServer: httpServer}
}

func (s *Server) Start() error {
	logging.Info(context.Background(), "starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info(ctx, "shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) GetAddress() string {
	return fmt.Sprintf("http://localhost%s", s.httpServer.Addr)
}
