// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// rateLimit rejects requests beyond the limiter's budget with 429. The plan
// endpoint sits in front of a paid LLM API; everything else is local.
func rateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded, slow down",
			})
			return
		}
		c.Next()
	}
}

// SetupRoutes registers all endpoints on the router.
func SetupRoutes(router *gin.Engine, s *State, planLimiter *rate.Limiter) {
	router.GET("/health", HealthCheck)

	// API version 1 group
	v1 := router.Group("/v1")
	{
		if planLimiter != nil {
			v1.POST("/plan", rateLimit(planLimiter), HandlePlan(s))
		} else {
			v1.POST("/plan", HandlePlan(s))
		}
		v1.POST("/apply", HandleApply(s))
		v1.GET("/history", HandleHistory(s))
		v1.GET("/document", HandleDocument(s))
	}
}
