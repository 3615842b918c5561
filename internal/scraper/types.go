package scraper

// Card: одна карточка контакта в листинге.
type Card struct {
	Name        string
	Title       string
	Location    string
	ProfileURL  string
	SequenceNum int
}

// PageKind: тип страницы относительно сценария выгрузки.
type PageKind int

const (
	PageUnknown PageKind = iota
	PageProfile
	PageListing
	PageLogin
)

func (k PageKind) String() string {
	switch k {
	case PageProfile:
		return "profile"
	case PageListing:
		return "listing"
	case PageLogin:
		return "login"
	default:
		return "unknown"
	}
}

// PaginationState вычисляется заново на каждой странице и не сохраняется.
type PaginationState struct {
	Found        bool
	CurrentPage  int
	TotalPages   int
	NextDisabled bool
	HasNext      bool
}

type Selectors struct {
	ListContainer        string   `yaml:"list_container"`
	CardSelectors        string   `yaml:"card_selectors"`
	NameSelectors        []string `yaml:"name_selectors"`
	TitleSelectors       []string `yaml:"title_selectors"`
	LocationSelectors    []string `yaml:"location_selectors"`
	ProfileLinkSelectors []string `yaml:"profile_link_selectors"`
	EntryPointSelectors  []string `yaml:"entry_point_selectors"`
	SiteLinks            string   `yaml:"site_links"`
	Pagination           string   `yaml:"pagination"`
	PageState            string   `yaml:"page_state"`
	NextButton           string   `yaml:"next_button"`
	LoginIndicators      []string `yaml:"login_indicators"`
	LoadingIndicators    []string `yaml:"loading_indicators"`

	// Заполняются из секции site конфига.
	ProfilePath    string `yaml:"-"`
	ListingPath    string `yaml:"-"`
	LoginPath      string `yaml:"-"`
	EntryPointHref string `yaml:"-"`
}
