package server

import "bovw/internal/histogram"

// EncodeRequest carries the descriptors of one image, one row per keypoint
type EncodeRequest struct {
	Path     string      `json:"path"`
	Features [][]float32 `json:"features"`
}

// HistogramResponse represents an encoded image
type HistogramResponse struct {
	Path string    `json:"path"`
	Bins []float32 `json:"bins"`
}

// QueryRequest represents the request body for a similarity query
type QueryRequest struct {
	Path     string      `json:"path"`
	Features [][]float32 `json:"features"`
	TopK     int         `json:"top_k"`
}

// QueryResponse represents the ranked dataset images, closest first
type QueryResponse struct {
	Results []histogram.Similarity `json:"results"`
}

type ListHistogramsResponse struct {
	Histograms []string `json:"histograms"`
}
