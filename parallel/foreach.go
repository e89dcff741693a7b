package parallel

import "sync"

// ForEach executes a for loop with a limited number of concurrent goroutines.
// Each goroutine processes one integer, from 0 to length.
func ForEach(length, limit int, body func(i int)) {
	if limit <= 0 {
		limit = DefaultLimit()
	}
	if length <= 0 {
		return
	}
	if limit > length {
		limit = length
	}
	if limit == 1 {
		for i := 0; i < length; i++ {
			body(i)
		}
		return
	}

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	wg.Add(length)

	for i := 0; i < length; i++ {
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			body(i)
		}(i)
	}

	wg.Wait()
}

// ForEachErr is ForEach for bodies that can fail. All iterations run; the
// error of the lowest failing index is returned.
func ForEachErr(length, limit int, body func(i int) error) error {
	if length <= 0 {
		return nil
	}
	errs := make([]error, length)
	ForEach(length, limit, func(i int) {
		errs[i] = body(i)
	})
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
