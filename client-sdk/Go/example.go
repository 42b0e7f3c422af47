package main

/*
Example script for the bovw Go SDK.

Run this after `bovw serve` has loaded a histogram dataset (default address:
http://localhost:8080). It will:
  1. Perform a health-check.
  2. Print the vocabulary size.
  3. Encode a random image and query the most similar dataset images.

Usage:
$ go run example.go
*/

import (
	"fmt"
	"math/rand"

	"bovw/client-sdk/Go/client"
)

func randomFeatures(rows, dim int) [][]float32 {
	out := make([][]float32, rows)
	for i := range out {
		out[i] = make([]float32, dim)
		for j := range out[i] {
			out[i][j] = rand.Float32() * 255
		}
	}
	return out
}

func main() {
	c := client.NewClient("http://localhost:8080")

	// 1. Health check
	ok, err := c.HealthCheck()
	if err != nil {
		panic(err)
	}
	fmt.Println("Health check:", ok)

	// 2. Vocabulary
	stats, err := c.Vocabulary()
	if err != nil {
		panic(err)
	}
	fmt.Printf("Vocabulary: %d words, dimension %d, %d images\n", stats.Words, stats.Dimension, stats.Images)

	// 3. Encode and query
	features := randomFeatures(50, stats.Dimension)
	h, err := c.Encode("random.png", features)
	if err != nil {
		panic(err)
	}
	fmt.Println("Histogram bins:", len(h.Bins))

	results, err := c.Query("random.png", features, 5)
	if err != nil {
		panic(err)
	}
	for i, r := range results {
		fmt.Printf("%d. %s %.4f\n", i+1, r.Path, r.Distance)
	}
}
