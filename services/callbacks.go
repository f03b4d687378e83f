package services

import (
	"fmt"
	"strconv"
	"strings"
)

// Callback data prefixes for inline buttons. Telegram limits callback data to 64 bytes.
const (
	CbTable        = "tbl:" // tbl:<table id>
	CbBoardRefresh = "board:refresh"
	CbCategory     = "cat:" // cat:<category id>
	CbAdd          = "add:" // add:<product id>
	CbQty          = "qty:" // qty:<item id>:<delta>
	CbOrderRefresh = "ord:refresh"
	CbPay          = "pay"
	CbBack         = "back"
	CbPaySel       = "psel:" // psel:<item id>:<delta>
	CbPayAll       = "pall"
	CbPayClear     = "pclr"
	CbPayReceipt   = "prcpt"
	CbPayMethod    = "pay:" // pay:cash | pay:card
	CbPayBack      = "pback"
	CbLang         = "lang:" // lang:<code>
	CbNoop         = "noop"

	CbAdmin       = "adm:"  // adm:<section>
	CbAdmProduct  = "admp:" // admp:<product id>
	CbAdmProdNew  = "admp:new"
	CbAdmProdCat  = "admpc:" // admpc:<category id> while editing a product
	CbAdmProdFilt = "admpf:" // admpf:<category id> product list filter
	CbAdmProdEdit = "admpe:" // admpe:<product id>
	CbAdmProdDel  = "admpd:" // admpd:<product id>
	CbAdmCatNew   = "admc:new"
	CbAdmCatDel   = "admcd:" // admcd:<category id>
	CbAdmConfirm  = "admok:" // admok:<kind>:<id>
	CbAdmCancel   = "admno"
	CbAdmReport   = "admr:" // admr:daily | admr:monthly
	CbAdmExit     = "adm:exit"
)

// ParseID reads the int64 after prefix.
func ParseID(data, prefix string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("bad callback %q", data)
	}
	return id, nil
}

// ParseIDDelta reads "<id>:<delta>" after prefix.
func ParseIDDelta(data, prefix string) (int64, int, error) {
	parts := strings.Split(strings.TrimPrefix(data, prefix), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("bad callback %q", data)
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, 0, fmt.Errorf("bad callback %q", data)
	}
	delta, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("bad callback %q", data)
	}
	return id, delta, nil
}
