package main

// General API documentation for swaggo. Build with -tags=swagger to serve it.
//
// @title           batchd API
// @version         1.0
// @description     HTTP API for model job admission, batching and status.
//
// @BasePath  /
//
// @schemes http
