package ethereum

var (
	AssetRegistryABI   = assetRegistryABI
	FractionalTokenABI = fractionalTokenABI
	ErrEmptyResult     = errEmptyResult
)
