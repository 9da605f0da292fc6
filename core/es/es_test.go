package es

// Test fixtures: a minimal account aggregate exercising creation, plain
// mutation, and both notifiability flags.

type account struct {
	AggregateRoot
	Owner   string
	Balance int
}

type accountOpened struct {
	EventMeta
	Owner string `json:"owner"`
}

func (*accountOpened) Topic() string              { return "account.opened" }
func (*accountOpened) New() Aggregate             { return &account{} }
func (*accountOpened) ExternallyNotifiable() bool { return true }

func (e *accountOpened) Apply(agg Aggregate) error {
	agg.(*account).Owner = e.Owner
	return nil
}

type moneyDeposited struct {
	EventMeta
	Amount int `json:"amount"`
}

func (*moneyDeposited) Topic() string              { return "account.deposited" }
func (*moneyDeposited) InternallyNotifiable() bool { return true }

func (e *moneyDeposited) Apply(agg Aggregate) error {
	agg.(*account).Balance += e.Amount
	return nil
}

type moneyWithdrawn struct {
	EventMeta
	Amount int `json:"amount"`
}

func (*moneyWithdrawn) Topic() string { return "account.withdrawn" }

func (e *moneyWithdrawn) Apply(agg Aggregate) error {
	agg.(*account).Balance -= e.Amount
	return nil
}

func testTopics() *TopicRegistry {
	topics := NewTopicRegistry()
	MustRegisterEventFor[accountOpened](topics)
	MustRegisterEventFor[moneyDeposited](topics)
	MustRegisterEventFor[moneyWithdrawn](topics)
	return topics
}

func testMapper(opts ...MapperOption) *Mapper {
	return NewMapper(NewTranscoder(), testTopics(), opts...)
}

func openAccount(owner string) *account {
	agg, err := Create(&accountOpened{Owner: owner})
	if err != nil {
		panic(err)
	}
	return agg.(*account)
}
