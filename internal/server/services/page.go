package services

// Page describes one page of a paginated listing.
type Page struct {
	Number   int
	Size     int
	Total    int
	LastPage int
}

// newPage clamps number to at least 1 and computes the row offset.
func newPage(number, size int) (Page, int) {
	if number < 1 {
		number = 1
	}
	return Page{Number: number, Size: size}, (number - 1) * size
}

func (p *Page) setTotal(total int) {
	p.Total = total
	p.LastPage = (total + p.Size - 1) / p.Size
	if p.LastPage == 0 {
		p.LastPage = 1
	}
}
