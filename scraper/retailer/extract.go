package retailer

// pdpExtractJS pulls the offer facts out of a product detail page. JSON-LD
// product metadata wins when present; otherwise common retailer price and
// availability selectors are probed. Missing facts stay empty strings.
const pdpExtractJS = `
(function() {
    var result = {
        price: '', currency: '', availability: '', shipping_eta: '',
        promos: [], agg_rating: '', agg_count: ''
    };

    function textOf(el) {
        return el ? (el.innerText || el.textContent || '').trim() : '';
    }

    // JSON-LD first
    var scripts = document.querySelectorAll("script[type='application/ld+json']");
    for (var i = 0; i < scripts.length; i++) {
        var node;
        try { node = JSON.parse(scripts[i].textContent); } catch (e) { continue; }
        var items = Array.isArray(node) ? node : (node['@graph'] || [node]);
        for (var j = 0; j < items.length; j++) {
            var item = items[j];
            if (!item || item['@type'] !== 'Product') continue;
            var offers = item.offers;
            if (Array.isArray(offers)) offers = offers[0];
            if (offers) {
                if (!result.price && offers.price) result.price = String(offers.price);
                if (!result.price && offers.lowPrice) result.price = String(offers.lowPrice);
                if (!result.currency && offers.priceCurrency) result.currency = String(offers.priceCurrency);
                if (!result.availability && offers.availability) {
                    result.availability = String(offers.availability).split('/').pop();
                }
            }
            var agg = item.aggregateRating;
            if (agg) {
                if (agg.ratingValue) result.agg_rating = String(agg.ratingValue);
                if (agg.reviewCount) result.agg_count = String(agg.reviewCount);
            }
        }
    }

    // Price selector fallback
    if (!result.price) {
        var priceSelectors = [
            '.price .final-price', '.dCSPrice', '.price_now',
            '[data-test="product-price"]', '.product-price .price',
            'span[itemprop="price"]', '.pricingSummary .price',
            '.cta-price', '.price'
        ];
        for (var p = 0; p < priceSelectors.length; p++) {
            var txt = textOf(document.querySelector(priceSelectors[p]));
            var m = txt.match(/[$£€]\s?\d[\d,]*(?:\.\d+)?/);
            if (m) { result.price = m[0]; break; }
        }
    }

    // Availability phrases in page text
    if (!result.availability) {
        var bodyText = (document.body.innerText || '').slice(0, 20000);
        var states = [
            ['In Stock', 'InStock'], ['Out of Stock', 'OutOfStock'],
            ['Sold Out', 'OutOfStock'], ['Add to cart', 'InStock'],
            ['Customizable', 'Customizable'], ['Pre-order', 'PreOrder'],
            ['Coming Soon', 'OutOfStock']
        ];
        for (var s = 0; s < states.length; s++) {
            if (bodyText.toLowerCase().indexOf(states[s][0].toLowerCase()) !== -1) {
                result.availability = states[s][1];
                break;
            }
        }
    }

    // Shipping estimate
    var shipMatch = (document.body.innerText || '')
        .match(/(?:ships|delivery|delivers|arrives)[^.\n]{0,60}?(?:in\s+)?(\d+[-–]?\d*\s*(?:business\s+)?(?:days?|weeks?))/i);
    if (shipMatch) result.shipping_eta = shipMatch[1].trim();

    // Promo badges
    var promoSelectors = [
        '.promo-badge', '.savingBadge', '.discount-badge', '.deal-badge',
        '[class*="coupon"]', '.special-offers li', '.promotions li'
    ];
    var seenPromos = {};
    for (var b = 0; b < promoSelectors.length; b++) {
        var nodes = document.querySelectorAll(promoSelectors[b]);
        for (var n = 0; n < nodes.length && result.promos.length < 5; n++) {
            var promo = textOf(nodes[n]);
            if (promo && promo.length < 120 && !seenPromos[promo]) {
                seenPromos[promo] = true;
                result.promos.push(promo);
            }
        }
    }

    return result;
})()
`

// loadMoreJS clicks the reviews "load more" / "show more" control if one is
// visible. Returns true when a click happened.
const loadMoreJS = `
(function() {
    var selectors = [
        'button.bv-content-btn-pages-load-more',
        'button[data-bv-v="contentBtnPagesLoadMore"]',
        '.reviews-load-more button', 'button.load-more-reviews',
        'a.load-more', 'button[aria-label="Show more reviews"]'
    ];
    for (var i = 0; i < selectors.length; i++) {
        var btn = document.querySelector(selectors[i]);
        if (btn && btn.offsetParent !== null && !btn.disabled) {
            btn.click();
            return true;
        }
    }
    // Generic fallback: any visible button whose label mentions more reviews
    var buttons = document.querySelectorAll('button, a[role="button"]');
    for (var j = 0; j < buttons.length; j++) {
        var label = (buttons[j].innerText || '').trim().toLowerCase();
        if ((label === 'load more' || label === 'show more reviews' || label === 'more reviews') &&
            buttons[j].offsetParent !== null) {
            buttons[j].click();
            return true;
        }
    }
    return false;
})()
`

// reviewExtractJS collects review cards. Bazaarvoice markup is the primary
// shape; generic review containers are the fallback.
const reviewExtractJS = `
(function() {
    var out = [];

    function textOf(el) {
        return el ? (el.innerText || el.textContent || '').trim() : '';
    }

    function firstText(root, selectors) {
        for (var i = 0; i < selectors.length; i++) {
            var txt = textOf(root.querySelector(selectors[i]));
            if (txt) return txt;
        }
        return '';
    }

    function ratingOf(root) {
        var el = root.querySelector(
            '[itemprop="ratingValue"], .bv-rating-ratio-number, [class*="rating-value"]');
        if (el) {
            var v = el.getAttribute('content') || textOf(el);
            var m = v.match(/\d(?:\.\d)?/);
            if (m) return m[0];
        }
        var aria = root.querySelector('[aria-label*="out of 5"], [aria-label*="stars"]');
        if (aria) {
            var m2 = aria.getAttribute('aria-label').match(/(\d(?:\.\d)?)\s*(?:out of|stars)/i);
            if (m2) return m2[1];
        }
        var star = firstText(root, ['.stars', '.star-rating']);
        var m3 = star.match(/\d(?:\.\d)?/);
        return m3 ? m3[0] : '';
    }

    var cardSelectors = [
        '.bv-content-review', 'li[data-bv-v="contentItem"]',
        '[itemprop="review"]', '.review-item', '.pr-review', 'article.review'
    ];
    var cards = [];
    for (var c = 0; c < cardSelectors.length && cards.length === 0; c++) {
        cards = Array.prototype.slice.call(document.querySelectorAll(cardSelectors[c]));
    }

    for (var i = 0; i < cards.length && out.length < 100; i++) {
        var card = cards[i];
        out.push({
            rating: ratingOf(card),
            title: firstText(card, ['.bv-content-title', '.review-title', 'h3', 'h4']),
            body: firstText(card, ['.bv-content-summary-body-text', '.review-body',
                                   '[itemprop="reviewBody"]', '.review-text', 'p']),
            author: firstText(card, ['.bv-author', '[itemprop="author"]',
                                     '.review-author', '.reviewer-name']),
            date: firstText(card, ['.bv-content-datetime-stamp', '[itemprop="datePublished"]',
                                   '.review-date', 'time'])
        });
    }

    return out;
})()
`

// qnaExtractJS collects question/answer blocks from community Q&A sections.
const qnaExtractJS = `
(function() {
    var out = [];

    function textOf(el) {
        return el ? (el.innerText || el.textContent || '').trim() : '';
    }

    var blockSelectors = [
        '.bv-content-question', '[data-bv-v="contentItemQuestion"]',
        '.qna-item', '.question-item', '[itemprop="mainEntity"]'
    ];
    var blocks = [];
    for (var s = 0; s < blockSelectors.length && blocks.length === 0; s++) {
        blocks = Array.prototype.slice.call(document.querySelectorAll(blockSelectors[s]));
    }

    for (var i = 0; i < blocks.length && out.length < 50; i++) {
        var block = blocks[i];
        var question = textOf(block.querySelector(
            '.bv-content-question-summary, .question-text, [itemprop="name"], h3'));
        var answer = textOf(block.querySelector(
            '.bv-content-answer-body, .answer-text, [itemprop="acceptedAnswer"], .answer'));
        if (question || answer) {
            out.push({ question: question, answer: answer });
        }
    }

    return out;
})()
`
