package indexer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"liquidator/pkg/httpclient"
	"liquidator/pkg/retry"
)

// DefaultRegistryURL - публичный GraphQL-реестр vault'ов
const DefaultRegistryURL = "https://api.morpho.org/graphql"

// vaultsQuery выбирает адреса whitelisted vault'ов сети
const vaultsQuery = `query Vaults($chainId: Int!) {
  vaults(first: 1000, where: { chainId_in: [$chainId], whitelisted: true }) {
    items { address }
  }
}`

// VaultRegistry - источник whitelist'а vault'ов, когда он не задан
// конфигурацией напрямую
type VaultRegistry struct {
	url    string
	client *http.Client
	log    *zap.Logger
}

// NewVaultRegistry создаёт клиент реестра; пустой url заменяется публичным
func NewVaultRegistry(url string, log *zap.Logger) *VaultRegistry {
	if url == "" {
		url = DefaultRegistryURL
	}
	return &VaultRegistry{url: url, client: httpclient.Get(), log: log}
}

type vaultsGQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type vaultsGQLResponse struct {
	Data struct {
		Vaults struct {
			Items []struct {
				Address common.Address `json:"address"`
			} `json:"items"`
		} `json:"vaults"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// WhitelistedVaults возвращает адреса vault'ов сети из реестра
func (r *VaultRegistry) WhitelistedVaults(ctx context.Context, chainID int64) ([]common.Address, error) {
	body, err := jsoniter.Marshal(vaultsGQLRequest{
		Query:     vaultsQuery,
		Variables: map[string]interface{}{"chainId": chainID},
	})
	if err != nil {
		return nil, fmt.Errorf("registry: encode query: %w", err)
	}

	var parsed vaultsGQLResponse
	err = retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("registry: build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := r.client.Do(req)
		if err != nil {
			return fmt.Errorf("registry: request: %w", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("registry: read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("registry: status %d: %s", resp.StatusCode, string(raw))
		}
		return jsoniter.Unmarshal(raw, &parsed)
	}, retry.NetworkConfig())
	if err != nil {
		return nil, err
	}

	if len(parsed.Errors) > 0 {
		return nil, fmt.Errorf("registry: graphql error: %s", parsed.Errors[0].Message)
	}

	vaults := make([]common.Address, 0, len(parsed.Data.Vaults.Items))
	for _, item := range parsed.Data.Vaults.Items {
		vaults = append(vaults, item.Address)
	}

	r.log.Info("whitelist vault'ов получен из реестра",
		zap.Int64("chain_id", chainID),
		zap.Int("vaults", len(vaults)))
	return vaults, nil
}
