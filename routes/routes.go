package routes

import (
	"github.com/Dosada05/esport-core/handlers"
	"github.com/Dosada05/esport-core/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func SetupRoutes(
	router *chi.Mux,
	auth *middleware.Authenticator,
	matchHandler *handlers.MatchHandler,
	evidenceHandler *handlers.EvidenceHandler,
	ratingHandler *handlers.RatingHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", matchHandler.GetMatchHandler)
		r.Get("/{matchID}/evidence", evidenceHandler.ListEvidenceHandler)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)

			r.Post("/{matchID}/score", matchHandler.ProposeScoreHandler)
			r.Post("/{matchID}/confirm", matchHandler.ConfirmResultHandler)
			r.Post("/{matchID}/moderate", matchHandler.ModerateHandler)
			r.Post("/{matchID}/evidence", evidenceHandler.UploadEvidenceHandler)
		})
	})

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/{tournamentID}/matches", matchHandler.ListTournamentMatchesHandler)
	})

	router.Route("/ratings", func(r chi.Router) {
		r.Get("/", ratingHandler.ListTeamRatingsHandler)
		r.Get("/{teamID}", ratingHandler.GetTeamRatingHandler)
	})

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)
}
