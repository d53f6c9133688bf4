package handler

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the health checks at the root and the loan API under /api/v1
func RegisterRoutes(router *mux.Router, loans *LoanHandler, health *HealthHandler) {
	// Health check
	router.HandleFunc("/health", health.Health).Methods("GET")
	router.HandleFunc("/health/ready", health.Ready).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/loans", loans.CreateLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}", loans.GetLoan).Methods("GET")
	api.HandleFunc("/loans/{loanId}/status", loans.TransitionStatus).Methods("PUT")
	api.HandleFunc("/loans/{loanId}/schedule", loans.GetSchedule).Methods("GET")
	api.HandleFunc("/loans/{loanId}/due", loans.GetDue).Methods("GET")
	api.HandleFunc("/loans/{loanId}/payments", loans.ListPayments).Methods("GET")
	api.HandleFunc("/loans/{loanId}/payments", loans.AddPayment).Methods("POST")
	api.HandleFunc("/loans/{loanId}/reconcile", loans.ReconcileLoan).Methods("POST")

	api.HandleFunc("/payments/{paymentId}", loans.EditPayment).Methods("PUT")
	api.HandleFunc("/payments/{paymentId}", loans.DeletePayment).Methods("DELETE")

	api.HandleFunc("/plans/{planId}", loans.UpdatePlan).Methods("PUT")
	api.HandleFunc("/calculator", loans.Calculate).Methods("POST")

	api.HandleFunc("/collections", loans.ListCollections).Methods("GET")
	api.HandleFunc("/reports/portfolio", loans.PortfolioReport).Methods("GET")
	api.HandleFunc("/reports/monthly", loans.MonthlyCollections).Methods("GET")
	api.HandleFunc("/dashboard", loans.DashboardStats).Methods("GET")
	api.HandleFunc("/reconcile", loans.ReconcileAll).Methods("POST")
}
