// Package pricing computes line-item prices from a catalog snapshot.
//
// Extra costs from toppings and promotion picks are added up for the whole
// line and then amortized across its units, so UnitaryPrice is an average
// whenever units carry different toppings. Amounts are carried with four
// decimal places and the subtotal is rounded to two.
package pricing
