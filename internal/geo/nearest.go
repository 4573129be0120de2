package geo

// Locatable is anything with a position.
type Locatable interface {
	Position() Coordinate
}

// NearestIndex returns the index of the item closest to c. The scan is
// linear and a later item must be strictly closer to replace an earlier one,
// so ties go to the first occurrence in input order.
func NearestIndex[T Locatable](c Coordinate, items []T) (int, error) {
	if len(items) == 0 {
		return -1, ErrEmptyInput
	}

	best := 0
	bestDistance := DistanceKm(c, items[0].Position())
	for i := 1; i < len(items); i++ {
		d := DistanceKm(c, items[i].Position())
		if d < bestDistance {
			best = i
			bestDistance = d
		}
	}
	return best, nil
}

// Nearest returns the item closest to c, see NearestIndex.
func Nearest[T Locatable](c Coordinate, items []T) (T, error) {
	i, err := NearestIndex(c, items)
	if err != nil {
		var zero T
		return zero, err
	}
	return items[i], nil
}
