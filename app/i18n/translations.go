package i18n

var translations = map[string]map[Key]string{
	"en": {
		ViewConfig:      "📱 View My Config",
		ViewPlans:       "💰 View Available Plans",
		Downloads:       "⬇️ Downloads",
		Support:         "❓ Support/Help",
		SelectLanguage:  "Please select your preferred language:",
		LanguageSet:     "Language set to English",
		Welcome:         "Welcome to our VPN service! Please select an option:",
		ConfigNotFound:  "No configurations found. Please purchase a plan first.",
		ActiveConfigs:   "**Your Active Configurations:**\n",
		ExpiredConfigs:  "\n**Expired Configurations:**\n",
		ConfigDetails:   "Username: %v\nPlan: %v\nTraffic: %.2fGB/%.2fGB\nExpires in: %v days\n",
		BasicPlan:       "🚀 Basic Plan\n- %[1]dGB Traffic\n- %[2]d Days\n- Price: $%[3]s",
		PremiumPlan:     "⚡️ Premium Plan\n- %[1]dGB Traffic\n- %[2]d Days\n- Price: $%[3]s",
		UltimatePlan:    "💎 Ultimate Plan\n- %[1]dGB Traffic\n- %[2]d Days\n- Price: $%[3]s",
		SelectPayment:   "Select your preferred payment method:",
		CryptoPay:       "💎 Pay with Crypto",
		PurchaseSuccess: "Payment successful! Your configuration will be generated shortly.",
		PurchaseError:   "Error processing payment. Please try again.",
		DownloadTitle:   "📱 Download VPN Clients",
		AndroidClient:   "📱 Android Client",
		IOSClient:       "📱 iOS Client",
		WindowsClient:   "🖥️ Windows Client",
		MacOSClient:     "🖥️ macOS Client",
		LinuxClient:     "🖥️ Linux Client",
	},
	"fa": {
		ViewConfig:      "📱 مشاهده پیکربندی",
		ViewPlans:       "💰 مشاهده پلن‌ها",
		Downloads:       "⬇️ دانلود",
		Support:         "❓ پشتیبانی/راهنما",
		SelectLanguage:  "لطفا زبان مورد نظر خود را انتخاب کنید:",
		LanguageSet:     "زبان به فارسی تغییر کرد",
		Welcome:         "به سرویس VPN ما خوش آمدید! لطفا یک گزینه را انتخاب کنید:",
		ConfigNotFound:  "پیکربندی یافت نشد. لطفا ابتدا یک پلن خریداری کنید.",
		ActiveConfigs:   "**پیکربندی‌های فعال شما:**\n",
		ExpiredConfigs:  "\n**پیکربندی‌های منقضی شده:**\n",
		ConfigDetails:   "نام کاربری: %v\nپلن: %v\nترافیک: %.2fGB/%.2fGB\nانقضا در: %v روز\n",
		BasicPlan:       "🚀 پلن پایه\n- ترافیک %[1]d گیگابایت\n- %[2]d روز\n- قیمت: $%[3]s دلار",
		PremiumPlan:     "⚡️ پلن ویژه\n- ترافیک %[1]d گیگابایت\n- %[2]d روز\n- قیمت: $%[3]s دلار",
		UltimatePlan:    "💎 پلن فوق العاده\n- ترافیک %[1]d گیگابایت\n- %[2]d روز\n- قیمت: $%[3]s دلار",
		SelectPayment:   "روش پرداخت را انتخاب کنید:",
		CryptoPay:       "💎 پرداخت با ارز دیجیتال",
		PurchaseSuccess: "پرداخت موفق! پیکربندی شما به زودی ایجاد خواهد شد.",
		PurchaseError:   "خطا در پردازش پرداخت. لطفا دوباره تلاش کنید.",
		DownloadTitle:   "📱 دانلود کلاینت‌های VPN",
		AndroidClient:   "📱 کلاینت اندروید",
		IOSClient:       "📱 کلاینت iOS",
		WindowsClient:   "🖥️ کلاینت ویندوز",
		MacOSClient:     "🖥️ کلاینت macOS",
		LinuxClient:     "🖥️ کلاینت لینوکس",
	},
	"ru": {
		ViewConfig:      "📱 Просмотр конфигурации",
		ViewPlans:       "💰 Доступные планы",
		Downloads:       "⬇️ Загрузки",
		Support:         "❓ Поддержка/Помощь",
		SelectLanguage:  "Пожалуйста, выберите язык:",
		LanguageSet:     "Язык изменен на русский",
		Welcome:         "Добро пожаловать в наш VPN сервис! Выберите опцию:",
		ConfigNotFound:  "Конфигурации не найдены. Сначала купите план.",
		ActiveConfigs:   "**Ваши активные конфигурации:**\n",
		ExpiredConfigs:  "\n**Истекшие конфигурации:**\n",
		ConfigDetails:   "Имя пользователя: %v\nПлан: %v\nТрафик: %.2fGB/%.2fGB\nИстекает через: %v дней\n",
		BasicPlan:       "🚀 Базовый план\n- %[1]dГБ трафика\n- %[2]d дней\n- Цена: $%[3]s",
		PremiumPlan:     "⚡️ Премиум план\n- %[1]dГБ трафика\n- %[2]d дней\n- Цена: $%[3]s",
		UltimatePlan:    "💎 Максимальный план\n- %[1]dГБ трафика\n- %[2]d дней\n- Цена: $%[3]s",
		SelectPayment:   "Выберите способ оплаты:",
		CryptoPay:       "💎 Оплата криптовалютой",
		PurchaseSuccess: "Оплата успешна! Ваша конфигурация будет создана.",
		PurchaseError:   "Ошибка при обработке платежа. Попробуйте снова.",
		DownloadTitle:   "📱 Скачать VPN клиенты",
		AndroidClient:   "📱 Android клиент",
		IOSClient:       "📱 iOS клиент",
		WindowsClient:   "🖥️ Windows клиент",
		MacOSClient:     "🖥️ macOS клиент",
		LinuxClient:     "🖥️ Linux клиент",
	},
	"zh": {
		ViewConfig:      "📱 查看配置",
		ViewPlans:       "💰 查看套餐",
		Downloads:       "⬇️ 下载",
		Support:         "❓ 支持/帮助",
		SelectLanguage:  "请选择您的语言：",
		LanguageSet:     "语言已设置为中文",
		Welcome:         "欢迎使用我们的VPN服务！请选择：",
		ConfigNotFound:  "未找到配置。请先购买套餐。",
		ActiveConfigs:   "**您的活动配置：**\n",
		ExpiredConfigs:  "\n**已过期配置：**\n",
		ConfigDetails:   "用户名：%v\n套餐：%v\n流量：%.2fGB/%.2fGB\n剩余天数：%v 天\n",
		BasicPlan:       "🚀 基础套餐\n- %[1]dGB流量\n- %[2]d天\n- 价格：$%[3]s",
		PremiumPlan:     "⚡️ 高级套餐\n- %[1]dGB流量\n- %[2]d天\n- 价格：$%[3]s",
		UltimatePlan:    "💎 至尊套餐\n- %[1]dGB流量\n- %[2]d天\n- 价格：$%[3]s",
		SelectPayment:   "选择支付方式：",
		CryptoPay:       "💎 加密货币支付",
		PurchaseSuccess: "支付成功！您的配置将很快生成。",
		PurchaseError:   "支付处理错误。请重试。",
		DownloadTitle:   "📱 下载VPN客户端",
		AndroidClient:   "📱 安卓客户端",
		IOSClient:       "📱 iOS客户端",
		WindowsClient:   "🖥️ Windows客户端",
		MacOSClient:     "🖥️ macOS客户端",
		LinuxClient:     "🖥️ Linux客户端",
	},
	"tk": {
		ViewConfig:      "📱 Sazlamalary görmek",
		ViewPlans:       "💰 Meýilnamalary görmek",
		Downloads:       "⬇️ Ýüklemek",
		Support:         "❓ Goldaw/Kömek",
		SelectLanguage:  "Diliňizi saýlaň:",
		LanguageSet:     "Dil türkmençä üýtgedildi",
		Welcome:         "VPN hyzmatymyza hoş geldiňiz! Opsiýany saýlaň:",
		ConfigNotFound:  "Sazlama tapylmady. Ilki meýilnama satyn alyň.",
		ActiveConfigs:   "**Siziň işjeň sazlamalaryňyz:**\n",
		ExpiredConfigs:  "\n**Möhleti geçen sazlamalar:**\n",
		ConfigDetails:   "Ulanyjy ady: %v\nMeýilnama: %v\nTrafik: %.2fGB/%.2fGB\nGalan gün: %v gün\n",
		BasicPlan:       "🚀 Esas Meýilnama\n- %[1]dGB trafik\n- %[2]d gün\n- Bahasy: $%[3]s",
		PremiumPlan:     "⚡️ Premium Meýilnama\n- %[1]dGB trafik\n- %[2]d gün\n- Bahasy: $%[3]s",
		UltimatePlan:    "💎 Ultimate Meýilnama\n- %[1]dGB trafik\n- %[2]d gün\n- Bahasy: $%[3]s",
		SelectPayment:   "Töleg usulyny saýlaň:",
		CryptoPay:       "💎 Kripto bilen tölemek",
		PurchaseSuccess: "Töleg üstünlikli! Sazlamalaryňyz basym dörediler.",
		PurchaseError:   "Tölegi amala aşyrmakda ýalňyşlyk. Gaýtadan synanyşyň.",
		DownloadTitle:   "📱 VPN müşderilerini ýükläň",
		AndroidClient:   "📱 Android müşderi",
		IOSClient:       "📱 iOS müşderi",
		WindowsClient:   "🖥️ Windows müşderi",
		MacOSClient:     "🖥️ macOS müşderi",
		LinuxClient:     "🖥️ Linux müşderi",
	},
	"ar": {
		ViewConfig:      "📱 عرض الإعدادات",
		ViewPlans:       "💰 عرض الباقات",
		Downloads:       "⬇️ التحميلات",
		Support:         "❓ الدعم/المساعدة",
		SelectLanguage:  "الرجاء اختيار لغتك:",
		LanguageSet:     "تم تغيير اللغة إلى العربية",
		Welcome:         "مرحباً بك في خدمة VPN! الرجاء اختيار خيار:",
		ConfigNotFound:  "لم يتم العثور على إعدادات. يرجى شراء باقة أولاً.",
		ActiveConfigs:   "**إعداداتك النشطة:**\n",
		ExpiredConfigs:  "\n**الإعدادات المنتهية:**\n",
		ConfigDetails:   "اسم المستخدم: %v\nالباقة: %v\nالبيانات: %.2fGB/%.2fGB\nتنتهي في: %v يوم\n",
		BasicPlan:       "🚀 الباقة الأساسية\n- %[1]dGB بيانات\n- %[2]d يوم\n- السعر: $%[3]s",
		PremiumPlan:     "⚡️ الباقة المميزة\n- %[1]dGB بيانات\n- %[2]d يوم\n- السعر: $%[3]s",
		UltimatePlan:    "💎 الباقة الكاملة\n- %[1]dGB بيانات\n- %[2]d يوم\n- السعر: $%[3]s",
		SelectPayment:   "اختر طريقة الدفع:",
		CryptoPay:       "💎 الدفع بالعملات المشفرة",
		PurchaseSuccess: "تم الدفع بنجاح! سيتم إنشاء الإعدادات قريباً.",
		PurchaseError:   "خطأ في معالجة الدفع. يرجى المحاولة مرة أخرى.",
		DownloadTitle:   "📱 تحميل تطبيقات VPN",
		AndroidClient:   "📱 تطبيق Android",
		IOSClient:       "📱 تطبيق iOS",
		WindowsClient:   "🖥️ تطبيق Windows",
		MacOSClient:     "🖥️ تطبيق macOS",
		LinuxClient:     "🖥️ تطبيق Linux",
	},
}
