package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the portfolio API.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRouter) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>portfolio-api - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "portfolio-api", "version": "v1.0.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer" } },
    "schemas": {
      "Error": { "type": "object", "properties": { "error": { "type": "string" } } },
      "Message": { "type": "object", "required": ["name","email","subject","message"], "properties": {
        "id": {"type":"integer"}, "name": {"type":"string"}, "email": {"type":"string"}, "subject": {"type":"string"},
        "message": {"type":"string"}, "date": {"type":"string","format":"date-time"}, "read": {"type":"boolean"},
        "source": {"type":"string"}, "category": {"type":"string"} } },
      "Rating": { "type": "object", "required": ["rating"], "properties": {
        "id": {"type":"integer"}, "rating": {"type":"integer","minimum":1,"maximum":5}, "comment": {"type":"string"},
        "date": {"type":"string","format":"date-time"} } },
      "BlogPost": { "type": "object", "required": ["title","date","status","content"], "properties": {
        "id": {"type":"integer"}, "title": {"type":"string"}, "date": {"type":"string"},
        "status": {"type":"string","enum":["Draft","Published"]}, "content": {"type":"string"} } },
      "Project": { "type": "object", "required": ["name","description","status","startDate","endDate"], "properties": {
        "id": {"type":"integer"}, "name": {"type":"string"}, "description": {"type":"string"},
        "status": {"type":"string","enum":["Active","Completed","Pending"]}, "startDate": {"type":"string"}, "endDate": {"type":"string"} } }
    }
  },
  "paths": {
    "/api/contact": { "post": { "summary": "Submit the contact form and notify the owner by e-mail",
      "requestBody": { "content": { "application/json": { "schema": { "$ref": "#/components/schemas/Message" } } } },
      "responses": { "200": { "description": "Message received and email sent" }, "400": { "description": "Missing required fields" },
        "429": { "description": "Rate limit exceeded" }, "500": { "description": "Failed to send email (message stored)" } } } },
    "/api/portfolio-rating": { "post": { "summary": "Submit a portfolio rating",
      "requestBody": { "content": { "application/json": { "schema": { "$ref": "#/components/schemas/Rating" } } } },
      "responses": { "200": { "description": "Rating submitted" }, "400": { "description": "Rating is required / out of range" } } } },
    "/api/messages": {
      "get": { "summary": "List messages", "security": [{"bearer": []}], "responses": { "200": { "description": "messages" } } },
      "post": { "summary": "Create a message", "security": [{"bearer": []}], "responses": { "201": { "description": "created" }, "400": { "description": "Missing required fields" } } } },
    "/api/messages/query": { "get": { "summary": "Filter messages by source, category, read, dateFrom, dateTo", "security": [{"bearer": []}],
      "responses": { "200": { "description": "matching messages" }, "400": { "description": "Invalid query parameters" } } } },
    "/api/messages/{id}": {
      "put": { "summary": "Update a message", "security": [{"bearer": []}], "responses": { "200": { "description": "updated" }, "404": { "description": "Message not found" } } },
      "delete": { "summary": "Delete a message", "security": [{"bearer": []}], "responses": { "204": { "description": "deleted" }, "404": { "description": "Message not found" } } } },
    "/api/portfolio-ratings": {
      "get": { "summary": "List ratings", "responses": { "200": { "description": "ratings" } } },
      "post": { "summary": "Create a rating", "security": [{"bearer": []}], "responses": { "201": { "description": "created" } } } },
    "/api/portfolio-ratings/query": { "get": { "summary": "Filter ratings by rating, hasComment, dateFrom, dateTo", "responses": { "200": { "description": "matching ratings" } } } },
    "/api/portfolio-ratings/{id}": {
      "put": { "summary": "Update a rating", "security": [{"bearer": []}], "responses": { "200": { "description": "updated" }, "404": { "description": "Rating not found" } } },
      "delete": { "summary": "Delete a rating", "security": [{"bearer": []}], "responses": { "204": { "description": "deleted" }, "404": { "description": "Rating not found" } } } },
    "/api/blog-posts": {
      "get": { "summary": "List blog posts", "responses": { "200": { "description": "posts" } } },
      "post": { "summary": "Create a blog post", "security": [{"bearer": []}], "responses": { "201": { "description": "created" }, "400": { "description": "Missing required fields" } } } },
    "/api/blog-posts/query": { "get": { "summary": "Filter posts by status, title, dateFrom, dateTo", "responses": { "200": { "description": "matching posts" } } } },
    "/api/blog-posts/{id}": {
      "put": { "summary": "Update a blog post", "security": [{"bearer": []}], "responses": { "200": { "description": "updated" }, "404": { "description": "Blog post not found" } } },
      "delete": { "summary": "Delete a blog post", "security": [{"bearer": []}], "responses": { "204": { "description": "deleted" }, "404": { "description": "Blog post not found" } } } },
    "/api/projects": {
      "get": { "summary": "List projects", "responses": { "200": { "description": "projects" } } },
      "post": { "summary": "Create a project", "security": [{"bearer": []}], "responses": { "201": { "description": "created" }, "400": { "description": "Missing required fields" } } } },
    "/api/projects/query": { "get": { "summary": "Filter projects by status, name, dateFrom, dateTo", "responses": { "200": { "description": "matching projects" } } } },
    "/api/projects/{id}": {
      "put": { "summary": "Update a project", "security": [{"bearer": []}], "responses": { "200": { "description": "updated" }, "404": { "description": "Project not found" } } },
      "delete": { "summary": "Delete a project", "security": [{"bearer": []}], "responses": { "204": { "description": "deleted" }, "404": { "description": "Project not found" } } } },
    "/auth/login": { "post": { "summary": "Admin login",
      "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"username":{"type":"string"},"password":{"type":"string"}}}}}},
      "responses": { "200": { "description": "tokens returned" }, "401": { "description": "invalid credentials" } } } },
    "/auth/refresh": { "post": { "summary": "Rotate the refresh token and issue a new access token",
      "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refreshToken":{"type":"string"}}}}}},
      "responses": { "200": { "description": "new tokens" }, "401": { "description": "invalid refresh" } } } },
    "/auth/logout": { "post": { "summary": "Logout and invalidate refresh token",
      "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refreshToken":{"type":"string"}}}}}},
      "responses": { "200": { "description": "logged out" } } } },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
