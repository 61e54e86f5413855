package geometry

import (
	"github.com/df07/go-sphere-pathtracer/pkg/core"
	"github.com/df07/go-sphere-pathtracer/pkg/material"
)

// HittableList is an ordered collection of shapes intersected as one
type HittableList struct {
	Shapes []Shape
}

// NewHittableList creates a list holding the given shapes
func NewHittableList(shapes ...Shape) *HittableList {
	return &HittableList{Shapes: append([]Shape(nil), shapes...)}
}

// Add appends shapes to the list
func (l *HittableList) Add(shapes ...Shape) {
	l.Shapes = append(l.Shapes, shapes...)
}

// Clear removes all shapes
func (l *HittableList) Clear() {
	l.Shapes = nil
}

// Len returns the number of shapes in the list
func (l *HittableList) Len() int {
	return len(l.Shapes)
}

// Hit returns the nearest intersection among all shapes.
// tMax narrows to the closest hit found so far, so occluded shapes are never reported.
func (l *HittableList) Hit(ray core.Ray, tMin, tMax float64) (*material.HitRecord, bool) {
	var closestHit *material.HitRecord
	closestSoFar := tMax

	for _, shape := range l.Shapes {
		if hit, isHit := shape.Hit(ray, tMin, closestSoFar); isHit {
			closestSoFar = hit.T
			closestHit = hit
		}
	}

	return closestHit, closestHit != nil
}
