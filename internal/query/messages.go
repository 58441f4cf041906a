package query

const (
	TypeItemsCount = "vending.query.items_count"
	TypeAdminsList = "vending.query.admins_list"
	TypeGreet      = "vending.query.greet"
)

type ItemsCountMessage struct{}

func (ItemsCountMessage) Type() string { return TypeItemsCount }

func (ItemsCountMessage) Validate() error { return nil }

type AdminsListMessage struct{}

func (AdminsListMessage) Type() string { return TypeAdminsList }

func (AdminsListMessage) Validate() error { return nil }

type GreetMessage struct{}

func (GreetMessage) Type() string { return TypeGreet }

func (GreetMessage) Validate() error { return nil }

// ItemsCountResponse maps each category key to its stock.
type ItemsCountResponse map[string]uint64

type AdminsListResponse struct {
	Admins []string `json:"admins"`
}

type GreetResponse struct {
	Message string `json:"message"`
}
