package model

// Page is one page of the approved message list.
type Page struct {
	Messages   []*Message
	Number     int
	PageSize   int
	TotalCount int
	TotalPages int
}

func (p *Page) HasPrevious() bool { return p.Number > 1 }

func (p *Page) HasNext() bool { return p.Number < p.TotalPages }

func (p *Page) PreviousNumber() int { return p.Number - 1 }

func (p *Page) NextNumber() int { return p.Number + 1 }
