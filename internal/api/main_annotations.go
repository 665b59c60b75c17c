// @title           folio API
// @version         1.0
// @description     Portfolios for creatives and job listings from companies. Authenticate with an API token or a browser session.
// @BasePath        /api
// @securityDefinitions.apikey BearerToken
// @in              header
// @name            Authorization
// @description     Type "Bearer" followed by a space and your API token. Example: "Bearer fo_xxx"
package api
