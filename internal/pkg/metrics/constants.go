package metrics

const (
	ComponentListener   = "listener"
	ComponentLedger     = "ledger"
	ComponentStore      = "store"
	ComponentDispatcher = "dispatcher"
)
