package domain

// Store keys. Each key holds one JSON document.
const (
	KeyProducts     = "products"
	KeySales        = "sales"
	KeyCurrentCart  = "current_cart"
	KeyUsers        = "users"
	KeyStockJournal = "stock_journal"
	KeyActivation   = "activation"
)

var Keys = []string{
	KeyProducts,
	KeySales,
	KeyCurrentCart,
	KeyUsers,
	KeyStockJournal,
	KeyActivation,
}
