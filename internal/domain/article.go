package domain

// Article is one scraped article, keyed by its title in the scraper output.
type Article struct {
	Title            string   `json:"-"`
	Link             string   `json:"link"`
	LangBreakContent *string  `json:"lang_break_content"`
	Sentences        []string `json:"article,omitempty"`
	Tashkeel         []string `json:"tashkeel,omitempty"`
}

// HasTashkeel reports whether the diacritized sentences line up with the plain ones.
func (a Article) HasTashkeel() bool {
	return len(a.Tashkeel) > 0 && len(a.Tashkeel) == len(a.Sentences)
}

// ArticleSet maps article titles to articles in crawl order.
type ArticleSet = OrderedMap[Article]

// NewArticleSet returns an empty article set.
func NewArticleSet() *ArticleSet {
	return NewOrderedMap[Article]()
}
