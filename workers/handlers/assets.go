package handlers

import (
	"errors"
	"fmt"
	"strings"

	"gorollupbridge/bridge"
	"gorollupbridge/config"
	"gorollupbridge/types"

	ethav "github.com/KOREAN139/ethereum-address-validator"
	"github.com/ethereum/go-ethereum/common"
)

var ErrUnknownAsset = errors.New("unknown asset")

const NativeSymbol = "ETH"

// Assets resolves the asset field of a request, either a configured
// symbol or the parent chain token address.
type Assets struct {
	bySymbol  map[string]bridge.Asset
	byAddress map[common.Address]bridge.Asset
	list      []bridge.Asset
}

func validAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("'%s' is not an address", s)
	}
	addr := common.HexToAddress(s)
	if err := ethav.Validate(addr.Hex()); err != nil {
		return common.Address{}, err
	}
	return addr, nil
}

func NewAssets(tokens []config.TokenConfig) (*Assets, error) {
	a := &Assets{
		bySymbol:  make(map[string]bridge.Asset),
		byAddress: make(map[common.Address]bridge.Asset),
	}
	native := bridge.NativeAsset(NativeSymbol)
	a.bySymbol[NativeSymbol] = native
	a.list = append(a.list, native)

	for _, t := range tokens {
		parent, err := validAddress(t.Parent)
		if err != nil {
			return nil, fmt.Errorf("token %s parent address: %w", t.Symbol, err)
		}
		child, err := validAddress(t.Child)
		if err != nil {
			return nil, fmt.Errorf("token %s child address: %w", t.Symbol, err)
		}
		symbol := strings.ToUpper(t.Symbol)
		if _, dup := a.bySymbol[symbol]; dup {
			return nil, fmt.Errorf("token %s configured twice", t.Symbol)
		}
		asset := bridge.Asset{
			Type:          types.AssetERC20,
			Symbol:        symbol,
			Decimals:      t.Decimals,
			ParentAddress: &parent,
			ChildAddress:  &child,
		}
		a.bySymbol[symbol] = asset
		a.byAddress[parent] = asset
		a.list = append(a.list, asset)
	}
	return a, nil
}

// Resolve treats an empty name as the native currency.
func (a *Assets) Resolve(name string) (bridge.Asset, error) {
	if name == "" {
		return a.bySymbol[NativeSymbol], nil
	}
	if strings.HasPrefix(name, "0x") {
		addr, err := validAddress(name)
		if err != nil {
			return bridge.Asset{}, err
		}
		if asset, ok := a.byAddress[addr]; ok {
			return asset, nil
		}
		return bridge.Asset{}, fmt.Errorf("%w: %s", ErrUnknownAsset, name)
	}
	if asset, ok := a.bySymbol[strings.ToUpper(name)]; ok {
		return asset, nil
	}
	return bridge.Asset{}, fmt.Errorf("%w: %s", ErrUnknownAsset, name)
}

// ByParent looks up a configured token by its parent chain contract.
func (a *Assets) ByParent(parent common.Address) (bridge.Asset, bool) {
	asset, ok := a.byAddress[parent]
	return asset, ok
}

func (a *Assets) List() []bridge.Asset {
	return a.list
}

// TokenAddresses are the token contracts to track balances of.
func (a *Assets) TokenAddresses() (parent, child []common.Address) {
	for _, asset := range a.list {
		if asset.IsNative() {
			continue
		}
		parent = append(parent, *asset.ParentAddress)
		child = append(child, *asset.ChildAddress)
	}
	return parent, child
}
