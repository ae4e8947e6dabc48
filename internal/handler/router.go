package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-results-api/internal/middleware"
	"github.com/noah-isme/sma-results-api/internal/models"
)

// RouteOptions wires handlers onto a router. A nil Tokens leaves every
// route open.
type RouteOptions struct {
	APIPrefix string
	Results   *ResultHandler
	Metrics   *MetricsHandler
	Tokens    middleware.TokenValidator
}

// RegisterRoutes mounts the observability and results API routes.
func RegisterRoutes(r gin.IRouter, opts RouteOptions) {
	if opts.Metrics != nil {
		r.GET("/health", opts.Metrics.Health)
		r.GET("/ready", opts.Metrics.Ready)
		r.GET("/metrics", opts.Metrics.Prometheus)
		r.GET("/metrics/summary", opts.Metrics.Summary)
	}
	if opts.Results == nil {
		return
	}

	prefix := "/" + strings.Trim(opts.APIPrefix, "/")
	if prefix == "/" {
		prefix = "/api/v1"
	}
	api := r.Group(prefix, middleware.WithResponseMeta())

	// Signed links carry their own authorisation.
	api.GET("/results/exports/:token", opts.Results.Download)

	var (
		readers []gin.HandlerFunc
		editors []gin.HandlerFunc
		owners  []gin.HandlerFunc
	)
	if opts.Tokens != nil {
		auth := middleware.JWT(opts.Tokens)
		readers = []gin.HandlerFunc{auth, middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin, models.RoleSuperAdmin)}
		editors = []gin.HandlerFunc{auth, middleware.ResultEditors()}
		owners = []gin.HandlerFunc{auth, middleware.RBAC(string(models.RoleTeacher), string(models.RoleAdmin), string(models.RoleSuperAdmin), middleware.RoleSelf)}
	}

	read := api.Group("", readers...)
	read.GET("/results", opts.Results.List)
	read.GET("/results/report", opts.Results.ClassReport)
	read.GET("/results/export", opts.Results.Export)

	own := api.Group("", owners...)
	own.GET("/results/students/:studentId", opts.Results.StudentHistory)
	own.GET("/results/students/:studentId/report", opts.Results.StudentReport)

	write := api.Group("", editors...)
	write.POST("/results", opts.Results.Save)
	write.POST("/results/bulk", opts.Results.SaveBatch)
	write.POST("/results/exports", opts.Results.Publish)
	write.DELETE("/results/:id", opts.Results.Delete)
	write.DELETE("/students/:studentId/results", opts.Results.DeleteStudent)
}
