// Package docs provides generated OpenAPI documentation.
//
// sides API
//
//	@title			sides API
//	@version		1.0
//	@description	Extracts ordered dialogue transcripts from PDF scripts.
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/sides
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:3000
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/sides/serve.go -o ./swagger --parseDependency --parseInternal
