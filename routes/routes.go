package routes

import (
	"net/http"

	"github.com/clubpadel/championship-system/handlers"
	"github.com/clubpadel/championship-system/middleware"
	"github.com/clubpadel/championship-system/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// SetupRoutes настраивает весь HTTP-интерфейс приложения.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	championshipHandler *handlers.ChampionshipHandler,
	enrollmentHandler *handlers.EnrollmentHandler,
	rankingHandler *handlers.RankingHandler,
	categoryHandler *handlers.CategoryHandler,
	matchHandler *handlers.MatchHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate([]byte(jwtSecret))
	adminOnly := middleware.Authorize(models.RoleAdmin)

	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	router.Post("/auth/registro", authHandler.Register)
	router.Post("/auth/login", authHandler.Login)

	router.Route("/campeonatos", func(r chi.Router) {
		r.Get("/", championshipHandler.List)
		r.Get("/{id}", championshipHandler.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(adminOnly)

			r.Post("/", championshipHandler.Create)
			r.Put("/{id}", championshipHandler.Update)
			r.Post("/{id}/etapas", championshipHandler.AddStage)
			r.Post("/{id}/procesar-inicio", championshipHandler.ProcessStart)
			r.Post("/{id}/cerrar", championshipHandler.Close)
			r.Put("/{id}/cartel", championshipHandler.UploadPoster)
		})
	})

	router.Route("/federado-campeonato", func(r chi.Router) {
		r.Use(authenticate)

		r.Post("/{campeonatoId}/{uid}", enrollmentHandler.Enroll)
		r.Put("/{campeonatoId}/invitacion/aceptar", enrollmentHandler.AcceptInvitation)
		r.Put("/{campeonatoId}/invitacion/rechazar", enrollmentHandler.RejectInvitation)
	})

	router.Route("/rankings", func(r chi.Router) {
		r.Get("/", rankingHandler.List)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(adminOnly)

			r.Post("/", rankingHandler.Upsert)
			r.Put("/{id}", rankingHandler.Update)
			r.Post("/{id}/ajustar", rankingHandler.Adjust)
			r.Put("/{id}/categoria", rankingHandler.ChangeCategory)
		})
	})

	router.Route("/ranking-categorias", func(r chi.Router) {
		r.Get("/", categoryHandler.ListByScope)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(adminOnly)

			r.Post("/", categoryHandler.Create)
			r.Patch("/orden", categoryHandler.Reorder)
		})
	})

	router.Route("/partidos", func(r chi.Router) {
		r.Get("/", matchHandler.ListByStage)
		r.Get("/{id}", matchHandler.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(adminOnly)

			r.Put("/{id}/resultado", matchHandler.RecordResult)
		})
	})

	router.Get("/ws/campeonatos/{id}", webSocketHandler.ServeWs)

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "resource not found", http.StatusNotFound)
	})
}
