// Package space provides the spatial substrates agents live in: square and
// hexagonal grids with single or multi occupancy, a continuous 2D space,
// and a network of nodes. Spaces track agent positions themselves, so agent
// types only need an identifier.
package space
