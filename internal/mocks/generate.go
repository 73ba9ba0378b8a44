// Package mocks provides gomock implementations of the ports used in pipeline tests.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
package mocks

// Generate mocks for the Deliverer and ReportPublisher ports used by the run pipeline.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=delivery_mock.go JobWatch/internal/ports Deliverer,ReportPublisher
