package escrow

import "github.com/pactum-labs/pactum-gateway/pkg/chain"

// Event signature topics emitted by the escrow contract. The watcher and
// the payment verifier match on these.
var (
	TopicDeposited     = chain.EventTopic("Deposited(bytes32,address,address,uint256)")
	TopicReleased      = chain.EventTopic("Released(bytes32,address,uint256,uint256)")
	TopicRefunded      = chain.EventTopic("Refunded(bytes32,address,uint256)")
	TopicDisputed      = chain.EventTopic("Disputed(bytes32,address)")
	TopicFeesWithdrawn = chain.EventTopic("FeesWithdrawn(address,uint256)")
)

// depositedLog encodes Deposited(orderId indexed, buyer indexed,
// seller indexed, amount).
func depositedLog(contract chain.Address, orderID chain.Hash, buyer, seller chain.Address, amount uint64) chain.Log {
	return chain.Log{
		Address: contract,
		Topics:  []chain.Hash{TopicDeposited, orderID, buyer.Topic(), seller.Topic()},
		Data:    chain.EncodeUint64Word(amount),
	}
}

// releasedLog encodes Released(orderId indexed, seller indexed, payout, fee).
func releasedLog(contract chain.Address, orderID chain.Hash, seller chain.Address, payout, fee uint64) chain.Log {
	data := append(chain.EncodeUint64Word(payout), chain.EncodeUint64Word(fee)...)
	return chain.Log{
		Address: contract,
		Topics:  []chain.Hash{TopicReleased, orderID, seller.Topic()},
		Data:    data,
	}
}

// refundedLog encodes Refunded(orderId indexed, buyer indexed, amount).
func refundedLog(contract chain.Address, orderID chain.Hash, buyer chain.Address, amount uint64) chain.Log {
	return chain.Log{
		Address: contract,
		Topics:  []chain.Hash{TopicRefunded, orderID, buyer.Topic()},
		Data:    chain.EncodeUint64Word(amount),
	}
}

// disputedLog encodes Disputed(orderId indexed, buyer indexed).
func disputedLog(contract chain.Address, orderID chain.Hash, buyer chain.Address) chain.Log {
	return chain.Log{
		Address: contract,
		Topics:  []chain.Hash{TopicDisputed, orderID, buyer.Topic()},
	}
}

// feesWithdrawnLog encodes FeesWithdrawn(recipient indexed, amount).
func feesWithdrawnLog(contract chain.Address, recipient chain.Address, amount uint64) chain.Log {
	return chain.Log{
		Address: contract,
		Topics:  []chain.Hash{TopicFeesWithdrawn, recipient.Topic()},
		Data:    chain.EncodeUint64Word(amount),
	}
}
