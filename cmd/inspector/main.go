package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/cresca-pay/vaultgate/internal/model"
)

// 小工具：连到运行中的网关，打印某个 owner 的金库状态
func main() {
	addr := flag.String("addr", "http://127.0.0.1:8080", "gateway base URL")
	apiKey := flag.String("key", "", "gateway API key (X-Gateway-Key)")
	owner := flag.String("owner", "", "vault owner to inspect")
	flag.Parse()

	if *owner == "" {
		fmt.Fprintln(os.Stderr, "usage: inspector -owner <wallet> [-addr url] [-key apikey]")
		os.Exit(2)
	}

	client := &http.Client{Timeout: 5 * time.Second}

	req, err := http.NewRequest(http.MethodGet, *addr+"/v1/vaults/"+*owner, nil)
	if err != nil {
		fatal(err)
	}
	if *apiKey != "" {
		req.Header.Set("X-Gateway-Key", *apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&e)
		fatal(fmt.Errorf("gateway returned %d: %v", resp.StatusCode, e))
	}

	var vaults []model.CreditVault
	if err := json.NewDecoder(resp.Body).Decode(&vaults); err != nil {
		fatal(err)
	}

	if len(vaults) == 0 {
		fmt.Printf("no vaults for %s\n", *owner)
		return
	}

	for _, v := range vaults {
		hf := v.HealthFactorBps()
		health := fmt.Sprintf("%d bps", hf)
		if hf == model.MaxHealthFactor {
			health = "∞"
		}
		status := "active"
		if !v.Active {
			status = "inactive"
		}
		fmt.Printf("vault %s [%s]\n", v.Key(), status)
		fmt.Printf("  collateral   %s USDC\n", model.FormatUnits(v.CollateralAmount))
		fmt.Printf("  credit limit %s USDC (ltv %d bps, rate %d bps)\n", model.FormatUnits(v.CreditLimit), v.LTVBps, v.InterestRateBps)
		fmt.Printf("  outstanding  %s USDC\n", model.FormatUnits(v.OutstandingBalance))
		fmt.Printf("  daily        %s spent of %s\n", model.FormatUnits(v.DailySpent), model.FormatUnits(v.DailyLimit))
		fmt.Printf("  health       %s  payments %d  volume %s USDC\n", health, v.TotalPayments, model.FormatUnits(v.TotalPaymentVolume))
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "inspector:", err)
	os.Exit(1)
}
