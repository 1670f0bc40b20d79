/**
 * @description
 * This file sets up the HTTP router for the booking-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware for browser clients.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Routes creates and returns the router for the booking service.
func Routes(bookings *BookingHandlers, wallets *WalletHandlers, jwksURL string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwksURL))

		// Booking lifecycle
		r.Post("/bookings", bookings.CreateBookingHandler)
		r.Get("/bookings", bookings.GetBookingsHandler)
		r.Post("/bookings/calculate-price", bookings.CalculatePriceHandler)
		r.Get("/bookings/{bookingID}", bookings.GetBookingHandler)
		r.Post("/bookings/{bookingID}/confirm", bookings.ConfirmBookingHandler)
		r.Post("/bookings/{bookingID}/decline", bookings.DeclineBookingHandler)
		r.Post("/bookings/{bookingID}/worker-complete", bookings.WorkerCompleteBookingHandler)
		r.Post("/bookings/{bookingID}/client-complete", bookings.ClientCompleteBookingHandler)
		r.Post("/bookings/{bookingID}/cancel", bookings.CancelBookingHandler)

		// Wallet and escrow
		r.Get("/wallet", wallets.GetWalletHandler)
		r.Get("/wallet/transactions", wallets.GetTransactionsHandler)
		r.Get("/escrows", wallets.GetEscrowsHandler)
		r.Get("/escrows/{escrowID}", wallets.GetEscrowHandler)
		r.Post("/escrows/{escrowID}/complaint", wallets.FileComplaintHandler)

		// Admin settlement endpoints
		r.Group(func(r chi.Router) {
			r.Use(RequireRole("admin"))

			r.Post("/admin/escrows/{escrowID}/release", wallets.AdminReleaseEscrowHandler)
			r.Post("/admin/escrows/{escrowID}/refund", wallets.AdminRefundEscrowHandler)
			r.Post("/admin/escrows/{escrowID}/resolve", wallets.ResolveComplaintHandler)
		})
	})

	return r
}
