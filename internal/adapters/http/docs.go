package http

import (
	"os"
	"sync"

	"github.com/gofiber/fiber/v2"
)

// openAPIPath is relative to the working directory the gateway is started from.
const openAPIPath = "api/openapi.yaml"

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Parkit API docs</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body style="margin:0">
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({ url: '/docs/openapi.yaml', dom_id: '#swagger-ui', deepLinking: true });
  </script>
</body>
</html>`

// SetupDocs registers Swagger UI at /docs and the OpenAPI document at
// /docs/openapi.yaml. The document is read once, on first request.
func SetupDocs(app *fiber.App) {
	var (
		once    sync.Once
		doc     []byte
		loadErr error
	)
	load := func() ([]byte, error) {
		once.Do(func() { doc, loadErr = os.ReadFile(openAPIPath) })
		return doc, loadErr
	}

	app.Get("/docs", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.SendString(swaggerUIHTML)
	})

	app.Get("/docs/openapi.yaml", func(c *fiber.Ctx) error {
		data, err := load()
		if err != nil {
			return errNotFound(c, "openapi.yaml not found")
		}
		c.Set(fiber.HeaderContentType, "application/yaml")
		return c.Send(data)
	})
}
