package http

import (
	"net/http"

	adminreset "stockmaster/frontend/adminReset"
	adminusers "stockmaster/frontend/adminUsers"
	"stockmaster/frontend/categories"
	"stockmaster/frontend/dashboard"
	"stockmaster/frontend/login"
	"stockmaster/frontend/movements"
	"stockmaster/frontend/products"
	"stockmaster/frontend/suppliers"
	systemlogs "stockmaster/frontend/systemLogs"
	"stockmaster/infrastructure/rbac"

	"github.com/go-chi/chi/v5"
)

// RegisterLoginRoutes registers the anonymous auth routes. Credential and
// reset endpoints sit behind the rate limiter.
func (s *Server) RegisterLoginRoutes() {
	d := s.loginDeps()
	limited := s.Options.Limiter.Middleware

	s.router.Get("/login", login.GetLoginScreenHandler)
	s.router.With(limited).Post("/login", login.CreateLoginHandler(d))
	s.router.Post("/logout", login.LogoutHandler(d))
	s.router.Get("/forgot-password", login.GetForgotPasswordScreenHandler)
	s.router.With(limited).Post("/forgot-password", login.ForgotPasswordFormHandler(d))
	s.router.Get("/reset-password", login.GetResetPasswordScreenHandler)
	s.router.With(limited).Post("/reset-password", login.ResetPasswordFormHandler(d))

	s.router.With(limited).Post("/api/auth/login", login.LoginCommandHandler(d))
	s.router.With(limited).Post("/api/auth/forgot-password", login.ForgotPasswordCommandHandler(d))
	s.router.With(limited).Post("/api/auth/reset-password", login.ResetPasswordCommandHandler(d))
}

// RegisterSessionRoutes registers routes any signed-in user may call.
func (s *Server) RegisterSessionRoutes(r chi.Router) {
	d := s.loginDeps()
	r.Post("/api/auth/logout", login.LogoutCommandHandler(d))
	r.Post("/api/auth/log-exit", login.LogExitCommandHandler(d))
	r.Get("/api/auth/me", login.MeQueryHandler(d))
}

// RegisterFrontendRoutes registers routes shared by operators and admins.
func (s *Server) RegisterFrontendRoutes(r chi.Router) chi.Router {
	both := []string{rbac.RoleAdmin, rbac.RoleOperator}

	s.Rbac.Add("DASHBOARD_VIEW", http.MethodGet, "/dashboard", both...)
	r.Get("/dashboard", dashboard.DashboardPageQueryHandler(s.DB, s.Options.Report))
	s.Rbac.Add("DASHBOARD_SUMMARY", http.MethodGet, "/api/dashboard", both...)
	r.Get("/api/dashboard", dashboard.SummaryQueryHandler(s.DB, s.Options.Report))
	s.Rbac.Add("DASHBOARD_CHART", http.MethodGet, "/api/dashboard/chart", both...)
	r.Get("/api/dashboard/chart", dashboard.ChartQueryHandler(s.DB, s.Options.Report))

	s.Rbac.Add("PRODUCTS_LIST", http.MethodGet, "/api/products", both...)
	r.Get("/api/products", products.ListProductsQueryHandler(s.DB))
	s.Rbac.Add("PRODUCTS_CREATE", http.MethodPost, "/api/products", both...)
	r.Post("/api/products", products.CreateProductCommandHandler(s.DB, s.Audit))
	s.Rbac.Add("PRODUCTS_EXPORT", http.MethodGet, "/api/products/export.csv", both...)
	r.Get("/api/products/export.csv", products.ExportProductsCSVHandler(s.DB))
	s.Rbac.Add("PRODUCTS_REPORT", http.MethodGet, "/api/products/report.pdf", both...)
	r.Get("/api/products/report.pdf", products.StockReportPDFHandler(s.DB))
	s.Rbac.Add("PRODUCTS_VIEW", http.MethodGet, "/api/products/*", both...)
	r.Get("/api/products/{id}", products.GetProductQueryHandler(s.DB))
	s.Rbac.Add("PRODUCTS_LABEL", http.MethodGet, "/api/products/*/label.pdf", both...)
	r.Get("/api/products/{id}/label.pdf", products.ProductLabelPDFHandler(s.DB))
	s.Rbac.Add("PRODUCTS_UPDATE", http.MethodPut, "/api/products/*", both...)
	r.Put("/api/products/{id}", products.UpdateProductCommandHandler(s.DB, s.Audit))

	s.Rbac.Add("MOVEMENTS_LIST", http.MethodGet, "/api/movements", both...)
	r.Get("/api/movements", movements.ListMovementsQueryHandler(s.DB))
	s.Rbac.Add("MOVEMENTS_CREATE", http.MethodPost, "/api/movements", both...)
	r.Post("/api/movements", movements.CreateMovementCommandHandler(s.DB, s.Audit))

	s.Rbac.Add("CATEGORIES_LIST", http.MethodGet, "/api/categories", both...)
	r.Get("/api/categories", categories.ListCategoriesQueryHandler(s.DB))
	s.Rbac.Add("SUPPLIERS_LIST", http.MethodGet, "/api/suppliers", both...)
	r.Get("/api/suppliers", suppliers.ListSuppliersQueryHandler(s.DB))

	s.Rbac.Add("SYSTEM_LOGS_CREATE", http.MethodPost, "/api/system-logs", both...)
	r.Post("/api/system-logs", systemlogs.CreateLogCommandHandler(s.DB))
	return r
}

// RegisterAdminRoutes registers admin-only routes. Resets additionally check
// the protected flag in their handlers.
func (s *Server) RegisterAdminRoutes(r chi.Router) chi.Router {
	admin := rbac.RoleAdmin

	s.Rbac.Add("PRODUCTS_DELETE", http.MethodDelete, "/api/products/*", admin)
	r.Delete("/api/products/batch", products.BatchDeleteProductsCommandHandler(s.DB, s.Audit))
	r.Delete("/api/products/{id}", products.DeleteProductCommandHandler(s.DB, s.Audit))
	s.Rbac.Add("PRODUCTS_IMPORT", http.MethodPost, "/api/products/import", admin)
	r.Post("/api/products/import", products.ImportProductsCommandHandler(s.DB, s.Audit))

	s.Rbac.Add("CATEGORIES_CREATE", http.MethodPost, "/api/categories", admin)
	r.Post("/api/categories", categories.CreateCategoryCommandHandler(s.DB, s.Audit))
	s.Rbac.Add("CATEGORIES_UPDATE", http.MethodPut, "/api/categories/*", admin)
	r.Put("/api/categories/{id}", categories.UpdateCategoryCommandHandler(s.DB, s.Audit))
	s.Rbac.Add("CATEGORIES_DELETE", http.MethodDelete, "/api/categories", admin)
	s.Rbac.Add("CATEGORIES_DELETE", http.MethodDelete, "/api/categories/*", admin)
	r.Delete("/api/categories", categories.DeleteCategoryCommandHandler(s.DB, s.Audit))
	r.Delete("/api/categories/{id}", categories.DeleteCategoryCommandHandler(s.DB, s.Audit))

	s.Rbac.Add("SUPPLIERS_CREATE", http.MethodPost, "/api/suppliers", admin)
	r.Post("/api/suppliers", suppliers.CreateSupplierCommandHandler(s.DB, s.Audit))
	s.Rbac.Add("SUPPLIERS_UPDATE", http.MethodPut, "/api/suppliers/*", admin)
	r.Put("/api/suppliers/{id}", suppliers.UpdateSupplierCommandHandler(s.DB, s.Audit))
	s.Rbac.Add("SUPPLIERS_DELETE", http.MethodDelete, "/api/suppliers", admin)
	s.Rbac.Add("SUPPLIERS_DELETE", http.MethodDelete, "/api/suppliers/*", admin)
	r.Delete("/api/suppliers", suppliers.DeleteSupplierCommandHandler(s.DB, s.Audit))
	r.Delete("/api/suppliers/{id}", suppliers.DeleteSupplierCommandHandler(s.DB, s.Audit))

	s.Rbac.Add("USERS_LIST", http.MethodGet, "/api/users", admin)
	r.Get("/api/users", adminusers.ListUsersQueryHandler(s.DB))
	s.Rbac.Add("USERS_CREATE", http.MethodPost, "/api/users", admin)
	r.Post("/api/users", adminusers.CreateUserCommandHandler(s.DB, s.Audit))
	s.Rbac.Add("USERS_UPDATE", http.MethodPut, "/api/users/*", admin)
	r.Put("/api/users/{id}", adminusers.UpdateUserCommandHandler(s.DB, s.Audit, s.SessionCache, s.UserCache))
	s.Rbac.Add("USERS_DELETE", http.MethodDelete, "/api/users/*", admin)
	r.Delete("/api/users/batch", adminusers.BatchDeleteUsersCommandHandler(s.DB, s.Audit, s.SessionCache, s.UserCache))
	r.Delete("/api/users/{id}", adminusers.DeleteUserCommandHandler(s.DB, s.Audit, s.SessionCache, s.UserCache))

	s.Rbac.Add("SYSTEM_LOGS_LIST", http.MethodGet, "/api/system-logs", admin)
	r.Get("/api/system-logs", systemlogs.ListLogsQueryHandler(s.DB))
	s.Rbac.Add("SYSTEM_LOGS_CLEAR", http.MethodDelete, "/api/system-logs", admin)
	r.Delete("/api/system-logs", systemlogs.ClearLogsCommandHandler(s.DB, s.Audit))

	s.Rbac.Add("RESET_HISTORY", http.MethodDelete, "/api/admin/reset-history", admin)
	r.Delete("/api/admin/reset-history", adminreset.ResetHistoryCommandHandler(s.DB, s.Audit))
	s.Rbac.Add("RESET_PRODUCTS", http.MethodDelete, "/api/reset-products", admin)
	r.Delete("/api/reset-products", adminreset.ResetProductsCommandHandler(s.DB, s.Audit))
	return r
}
