package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           vramd API
// @version         1.0
// @description     HTTP API of the GPU model lifecycle manager: admission, eviction and status of models sharing one GPU.
//
// @contact.name   vramd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
